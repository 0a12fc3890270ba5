package boiledrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/quiz"
)

const (
	questionColumns = "id, lab_id, question, correct_answer, explanation, points, position, created_at, updated_at"
	hintColumns     = "id, question_id, hint, position"
	hintColumnCount = 4
)

type (
	questionRow struct {
		ID            string    `boil:"id"`
		LabID         string    `boil:"lab_id"`
		Question      string    `boil:"question"`
		CorrectAnswer string    `boil:"correct_answer"`
		Explanation   string    `boil:"explanation"`
		Points        int       `boil:"points"`
		Position      int       `boil:"position"`
		CreatedAt     time.Time `boil:"created_at"`
		UpdatedAt     time.Time `boil:"updated_at"`
	}

	hintRow struct {
		ID         string `boil:"id"`
		QuestionID string `boil:"question_id"`
		Hint       string `boil:"hint"`
		Position   int    `boil:"position"`
	}
)

type questionRepository struct {
	db core.DB
}

var _ quiz.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db core.DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo questionRepository) unboil(row questionRow, hints []hintRow) quiz.Question {
	q := quiz.Question{
		ID:            row.ID,
		LabID:         row.LabID,
		Question:      row.Question,
		CorrectAnswer: row.CorrectAnswer,
		Explanation:   row.Explanation,
		Points:        row.Points,
		Position:      row.Position,
		Hints:         make([]quiz.Hint, 0, len(hints)),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	for _, h := range hints {
		q.Hints = append(q.Hints, quiz.Hint{ID: h.ID, QuestionID: h.QuestionID, Hint: h.Hint, Position: h.Position})
	}
	return q
}

// trapNoRowsErr maps psql "no rows" err to quiz.ErrQuestionNotFound
func (repo questionRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return quiz.ErrQuestionNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo questionRepository) CreateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	err := core.RunInTx(ctx, repo.db, func(tx core.DBExecutor) error {
		_, err := queries.Raw(
			"INSERT INTO lab_questions ("+questionColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
			q.ID, q.LabID, q.Question, q.CorrectAnswer, q.Explanation, q.Points, q.Position, q.CreatedAt, q.UpdatedAt,
		).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "inserting question")
		}
		return insertHints(ctx, tx, q.Hints)
	})
	if err != nil {
		return quiz.Question{}, err
	}
	return q, nil
}

func insertHints(ctx context.Context, exec core.DBExecutor, hints []quiz.Hint) error {
	if len(hints) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(hints)*hintColumnCount)
	for _, h := range hints {
		args = append(args, h.ID, h.QuestionID, h.Hint, h.Position)
	}
	q := "INSERT INTO lab_question_hints (" + hintColumns + ") VALUES " +
		strmangle.Placeholders(true, len(args), 1, hintColumnCount)
	if _, err := queries.Raw(q, args...).ExecContext(ctx, exec); err != nil {
		return errors.Wrap(err, "inserting hints")
	}
	return nil
}

func (repo questionRepository) hintsOf(ctx context.Context, exec core.DBExecutor, ids ...string) (map[string][]hintRow, error) {
	byQuestion := make(map[string][]hintRow, len(ids))
	if len(ids) == 0 {
		return byQuestion, nil
	}
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	var rows []hintRow
	q := "SELECT " + hintColumns + " FROM lab_question_hints WHERE question_id IN (" +
		strmangle.Placeholders(true, len(ids), 1, 1) + ") ORDER BY position, id"
	if err := queries.Raw(q, args...).Bind(ctx, exec, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting hints")
	}
	for _, h := range rows {
		byQuestion[h.QuestionID] = append(byQuestion[h.QuestionID], h)
	}
	return byQuestion, nil
}

func (repo questionRepository) getQuestion(ctx context.Context, exec core.DBExecutor, id string) (quiz.Question, error) {
	var row questionRow
	err := queries.Raw("SELECT "+questionColumns+" FROM lab_questions WHERE id = $1", id).Bind(ctx, exec, &row)
	if err != nil {
		return quiz.Question{}, repo.trapNoRowsErr(err, "selecting question")
	}
	hints, err := repo.hintsOf(ctx, exec, row.ID)
	if err != nil {
		return quiz.Question{}, err
	}
	return repo.unboil(row, hints[row.ID]), nil
}

func (repo questionRepository) GetQuestion(ctx context.Context, id string) (quiz.Question, error) {
	return repo.getQuestion(ctx, repo.db, id)
}

func (repo questionRepository) QueryQuestions(ctx context.Context, labID string) ([]quiz.Question, error) {
	var rows []questionRow
	q := "SELECT " + questionColumns + " FROM lab_questions WHERE lab_id = $1 ORDER BY position, created_at, id"
	if err := queries.Raw(q, labID).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	hints, err := repo.hintsOf(ctx, repo.db, ids...)
	if err != nil {
		return nil, err
	}

	questions := make([]quiz.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, repo.unboil(r, hints[r.ID]))
	}
	return questions, nil
}

func (repo questionRepository) UpdateQuestion(ctx context.Context, q quiz.Question, diff *quiz.HintDiff) (quiz.Question, error) {
	var updated quiz.Question
	err := core.RunInTx(ctx, repo.db, func(tx core.DBExecutor) error {
		res, err := queries.Raw(
			`UPDATE lab_questions SET question = $2, correct_answer = $3, explanation = $4, points = $5, updated_at = $6
			WHERE id = $1`,
			q.ID, q.Question, q.CorrectAnswer, q.Explanation, q.Points, q.UpdatedAt,
		).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "updating question")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "updating question")
		} else if n == 0 {
			return quiz.ErrQuestionNotFound
		}

		if diff != nil {
			if err = applyHintDiff(ctx, tx, q.ID, *diff); err != nil {
				return err
			}
		}

		updated, err = repo.getQuestion(ctx, tx, q.ID)
		return err
	})
	if err != nil {
		return quiz.Question{}, err
	}
	return updated, nil
}

func applyHintDiff(ctx context.Context, tx core.DBExecutor, questionID string, diff quiz.HintDiff) error {
	if len(diff.Delete) > 0 {
		args := make([]interface{}, 0, len(diff.Delete)+1)
		args = append(args, questionID)
		for _, id := range diff.Delete {
			args = append(args, id)
		}
		q := "DELETE FROM lab_question_hints WHERE question_id = $1 AND id IN (" +
			strmangle.Placeholders(true, len(diff.Delete), 2, 1) + ")"
		if _, err := queries.Raw(q, args...).ExecContext(ctx, tx); err != nil {
			return errors.Wrap(err, "deleting hints")
		}
	}

	for _, h := range diff.Update {
		_, err := queries.Raw(
			"UPDATE lab_question_hints SET hint = $3, position = $4 WHERE id = $1 AND question_id = $2",
			h.ID, questionID, h.Hint, h.Position,
		).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "updating hint")
		}
	}

	return insertHints(ctx, tx, diff.Insert)
}

// DeleteQuestion relies on ON DELETE CASCADE to drop the hints.
func (repo questionRepository) DeleteQuestion(ctx context.Context, id string) error {
	res, err := queries.Raw("DELETE FROM lab_questions WHERE id = $1", id).ExecContext(ctx, repo.db)
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if n == 0 {
		return quiz.ErrQuestionNotFound
	}
	return nil
}
