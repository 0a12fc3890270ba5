package quiz

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cyberlab/core"
)

type Question struct {
	ID            string    `json:"id"`
	LabID         string    `json:"lab_id"`
	Question      string    `json:"question"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   string    `json:"explanation"`
	Points        int       `json:"points"`
	Position      int       `json:"position"`
	Hints         []Hint    `json:"hints"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type Hint struct {
	ID         string `json:"id"`
	QuestionID string `json:"-"`
	Hint       string `json:"hint"`
	Position   int    `json:"position"`
}

// PublicQuestion is what students see: no correct answer.
type PublicQuestion struct {
	ID          string `json:"id"`
	LabID       string `json:"lab_id"`
	Question    string `json:"question"`
	Explanation string `json:"explanation"`
	Points      int    `json:"points"`
	Position    int    `json:"position"`
	Hints       []Hint `json:"hints"`
}

func (q Question) Public() PublicQuestion {
	hints := q.Hints
	if hints == nil {
		hints = []Hint{}
	}
	return PublicQuestion{
		ID:          q.ID,
		LabID:       q.LabID,
		Question:    q.Question,
		Explanation: q.Explanation,
		Points:      q.Points,
		Position:    q.Position,
		Hints:       hints,
	}
}

// CheckResult is the verdict on a submitted answer.
type CheckResult struct {
	Correct           bool   `json:"correct"`
	UserAnswer        string `json:"userAnswer"`
	CorrectAnswer     string `json:"correctAnswer"`
	NormalizedUser    string `json:"normalizedUser"`
	NormalizedCorrect string `json:"normalizedCorrect"`
}

// HintInput is a hint as sent by the editor. Hints without an ID are new.
type HintInput struct {
	ID   string `json:"id"`
	Hint string `json:"hint" validate:"required,notblank"`
}

// NewQuestion contains information needed to create a new Question.
type NewQuestion struct {
	Question      string      `json:"question" validate:"required,notblank"`
	CorrectAnswer string      `json:"correct_answer" validate:"required,notblank"`
	Explanation   string      `json:"explanation"`
	Points        int         `json:"points" validate:"min=1"`
	Hints         []HintInput `json:"hints" validate:"dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Question = core.CleanString(nq.Question)
	nq.CorrectAnswer = core.CleanString(nq.CorrectAnswer)
	nq.Explanation = core.CleanString(nq.Explanation)
	if nq.Points == 0 {
		nq.Points = 1
	}
	cleanHints(nq.Hints)
	return validate.Struct(nq)
}

// UpdateQuestion defines what may be changed on a Question. Nil fields are left as they are.
// A non-nil Hints list replaces the hints: listed IDs are kept (and updated),
// missing ones are deleted, hints without an ID are added.
type UpdateQuestion struct {
	Question      *string      `json:"question" validate:"omitempty,notblank"`
	CorrectAnswer *string      `json:"correct_answer" validate:"omitempty,notblank"`
	Explanation   *string      `json:"explanation"`
	Points        *int         `json:"points" validate:"omitempty,min=1"`
	Hints         *[]HintInput `json:"hints" validate:"omitempty,dive"`
}

func (uq *UpdateQuestion) Validate(validate *validator.Validate) error {
	if uq.Hints != nil {
		cleanHints(*uq.Hints)
	}
	return validate.Struct(uq)
}

// CheckAnswerRequest is the body of an answer submission.
// UserAnswer is a pointer so a missing (or non string) answer can be told apart from an empty one.
type CheckAnswerRequest struct {
	QuestionID QuestionRef `json:"questionId"`
	UserAnswer *string     `json:"userAnswer"`
}

// QuestionRef is a question id as sent by clients: a string or a bare number.
type QuestionRef string

func (ref *QuestionRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ref = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ref = QuestionRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*ref = QuestionRef(n.String())
	return nil
}

func cleanHints(hints []HintInput) {
	for i := range hints {
		hints[i].ID = core.CleanString(hints[i].ID)
		hints[i].Hint = core.CleanString(hints[i].Hint)
	}
}
