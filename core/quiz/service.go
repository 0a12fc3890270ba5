package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/grader"
	"github.com/trezcool/cyberlab/core/lab"
)

var ErrQuestionNotFound = core.NewNotFoundError(errors.New("question not found"))

type (
	// HintDiff is the set of writes that turns a question's stored hints into the edited list.
	HintDiff struct {
		Insert []Hint
		Update []Hint
		Delete []string
	}

	Repository interface {
		// CreateQuestion stores the question with its hints, atomically.
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		// QueryQuestions returns the lab's questions (with hints) in display order.
		QueryQuestions(ctx context.Context, labID string) ([]Question, error)
		// UpdateQuestion saves the question fields and applies the hint diff (if any) in one transaction.
		UpdateQuestion(ctx context.Context, q Question, hints *HintDiff) (Question, error)
		DeleteQuestion(ctx context.Context, id string) error
	}

	LabFinder interface {
		GetLab(ctx context.Context, id string) (lab.Lab, error)
	}

	// Recorder receives grading events (metrics).
	Recorder interface {
		RecordAnswerGraded(correct bool, stage string)
	}

	ServiceInterface interface {
		CreateQuestion(ctx context.Context, labID string, nq NewQuestion) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		QueryQuestions(ctx context.Context, labID string) ([]Question, error)
		UpdateQuestion(ctx context.Context, id string, uq UpdateQuestion) (Question, error)
		DeleteQuestion(ctx context.Context, id string) error
		CheckAnswer(ctx context.Context, questionID, userAnswer string) (CheckResult, error)
	}

	Service struct {
		repo     Repository
		labs     LabFinder
		policy   grader.Policy
		logger   core.Logger
		recorder Recorder
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, labs LabFinder, logger core.Logger, conf *core.Config, recorder ...Recorder) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(labs, "labs"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	svc := &Service{
		repo:     repo,
		labs:     labs,
		policy:   PolicyFromConfig(conf.Grader),
		logger:   logger,
		recorder: nopRecorder{},
	}
	if len(recorder) > 0 && recorder[0] != nil {
		svc.recorder = recorder[0]
	}
	return svc
}

// PolicyFromConfig builds the grading policy, falling back to the defaults for unset values.
func PolicyFromConfig(gc core.GraderConfig) grader.Policy {
	p := grader.DefaultPolicy
	if gc.SimilarityThreshold > 0 {
		p.SimilarityThreshold = gc.SimilarityThreshold
	}
	if gc.MinContainmentLength > 0 {
		p.MinContainmentLength = gc.MinContainmentLength
	}
	return p
}

type nopRecorder struct{}

func (nopRecorder) RecordAnswerGraded(bool, string) {}

func (svc *Service) CreateQuestion(ctx context.Context, labID string, nq NewQuestion) (Question, error) {
	if _, err := svc.labs.GetLab(ctx, labID); err != nil {
		return Question{}, err
	}
	existing, err := svc.repo.QueryQuestions(ctx, labID)
	if err != nil {
		return Question{}, errors.Wrap(err, "querying questions")
	}

	now := time.Now().UTC()
	q := Question{
		ID:            uuid.New().String(),
		LabID:         labID,
		Question:      nq.Question,
		CorrectAnswer: nq.CorrectAnswer,
		Explanation:   nq.Explanation,
		Points:        nq.Points,
		Position:      len(existing),
		Hints:         make([]Hint, 0, len(nq.Hints)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, h := range nq.Hints {
		q.Hints = append(q.Hints, Hint{ID: uuid.New().String(), QuestionID: q.ID, Hint: h.Hint, Position: i})
	}

	q, err = svc.repo.CreateQuestion(ctx, q)
	return q, errors.Wrap(err, "creating question")
}

func (svc *Service) GetQuestion(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestion(ctx, id)
}

func (svc *Service) QueryQuestions(ctx context.Context, labID string) ([]Question, error) {
	if _, err := svc.labs.GetLab(ctx, labID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuestions(ctx, labID)
}

func (svc *Service) UpdateQuestion(ctx context.Context, id string, uq UpdateQuestion) (Question, error) {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if uq.Question != nil {
		q.Question = core.CleanString(*uq.Question)
	}
	if uq.CorrectAnswer != nil {
		q.CorrectAnswer = core.CleanString(*uq.CorrectAnswer)
	}
	if uq.Explanation != nil {
		q.Explanation = core.CleanString(*uq.Explanation)
	}
	if uq.Points != nil {
		q.Points = *uq.Points
	}
	q.UpdatedAt = time.Now().UTC()

	var diff *HintDiff
	if uq.Hints != nil {
		d := DiffHints(q.ID, q.Hints, *uq.Hints)
		diff = &d
	}

	q, err = svc.repo.UpdateQuestion(ctx, q, diff)
	return q, errors.Wrap(err, "updating question")
}

// DiffHints computes the writes turning the stored hints into the edited list.
// Hints are matched by ID; unknown IDs are treated as new hints. Positions follow the edited order.
func DiffHints(questionID string, stored []Hint, edited []HintInput) HintDiff {
	byID := make(map[string]Hint, len(stored))
	for _, h := range stored {
		byID[h.ID] = h
	}

	var diff HintDiff
	kept := make(map[string]struct{}, len(edited))
	for i, in := range edited {
		if old, ok := byID[in.ID]; ok && in.ID != "" {
			if _, dup := kept[in.ID]; !dup {
				kept[in.ID] = struct{}{}
				if old.Hint != in.Hint || old.Position != i {
					diff.Update = append(diff.Update, Hint{ID: old.ID, QuestionID: questionID, Hint: in.Hint, Position: i})
				}
				continue
			}
		}
		diff.Insert = append(diff.Insert, Hint{ID: uuid.New().String(), QuestionID: questionID, Hint: in.Hint, Position: i})
	}
	for _, h := range stored {
		if _, ok := kept[h.ID]; !ok {
			diff.Delete = append(diff.Delete, h.ID)
		}
	}
	return diff
}

func (svc *Service) DeleteQuestion(ctx context.Context, id string) error {
	return svc.repo.DeleteQuestion(ctx, id)
}

// CheckAnswer grades an answer against the stored correct answer. Nothing is written.
func (svc *Service) CheckAnswer(ctx context.Context, questionID, userAnswer string) (CheckResult, error) {
	q, err := svc.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return CheckResult{}, err
	}

	res := svc.policy.Evaluate(userAnswer, q.CorrectAnswer)
	svc.recorder.RecordAnswerGraded(res.Correct, string(res.Stage))
	svc.logger.Info("answer graded", map[string]interface{}{
		"question":  q.ID,
		"correct":   res.Correct,
		"stage":     res.Stage,
		"closeness": grader.Closeness(userAnswer, q.CorrectAnswer),
	})

	return CheckResult{
		Correct:           res.Correct,
		UserAnswer:        userAnswer,
		CorrectAnswer:     q.CorrectAnswer,
		NormalizedUser:    grader.Normalize(userAnswer),
		NormalizedCorrect: grader.Normalize(q.CorrectAnswer),
	}, nil
}
