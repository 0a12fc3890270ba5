package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/cyberlab/core/quiz"
)

type questionRepository struct {
	db *DB
}

var _ quiz.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db}
}

// copyQuestion detaches the hints slice from the stored one.
func copyQuestion(q quiz.Question) quiz.Question {
	hints := make([]quiz.Hint, len(q.Hints))
	copy(hints, q.Hints)
	q.Hints = hints
	return q
}

func (repo *questionRepository) CreateQuestion(_ context.Context, q quiz.Question) (quiz.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q = copyQuestion(q)
	repo.db.questions[q.ID] = q
	return copyQuestion(q), nil
}

func (repo *questionRepository) GetQuestion(_ context.Context, id string) (quiz.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return copyQuestion(q), nil
	}
	return quiz.Question{}, quiz.ErrQuestionNotFound
}

func (repo *questionRepository) QueryQuestions(_ context.Context, labID string) ([]quiz.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]quiz.Question, 0)
	for _, q := range repo.db.questions {
		if q.LabID == labID {
			questions = append(questions, copyQuestion(q))
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		if !questions[i].CreatedAt.Equal(questions[j].CreatedAt) {
			return questions[i].CreatedAt.Before(questions[j].CreatedAt)
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (repo *questionRepository) UpdateQuestion(_ context.Context, q quiz.Question, diff *quiz.HintDiff) (quiz.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.questions[q.ID]
	if !ok {
		return quiz.Question{}, quiz.ErrQuestionNotFound
	}

	hints := stored.Hints
	if diff != nil {
		hints = applyHintDiff(stored.Hints, *diff)
	}
	q.Hints = hints
	repo.db.questions[q.ID] = copyQuestion(q)
	return copyQuestion(q), nil
}

func applyHintDiff(stored []quiz.Hint, diff quiz.HintDiff) []quiz.Hint {
	deleted := make(map[string]struct{}, len(diff.Delete))
	for _, id := range diff.Delete {
		deleted[id] = struct{}{}
	}
	updated := make(map[string]quiz.Hint, len(diff.Update))
	for _, h := range diff.Update {
		updated[h.ID] = h
	}

	hints := make([]quiz.Hint, 0, len(stored)+len(diff.Insert))
	for _, h := range stored {
		if _, ok := deleted[h.ID]; ok {
			continue
		}
		if u, ok := updated[h.ID]; ok {
			h.Hint, h.Position = u.Hint, u.Position
		}
		hints = append(hints, h)
	}
	hints = append(hints, diff.Insert...)
	sort.SliceStable(hints, func(i, j int) bool { return hints[i].Position < hints[j].Position })
	return hints
}

func (repo *questionRepository) DeleteQuestion(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return quiz.ErrQuestionNotFound
	}
	delete(repo.db.questions, id)
	return nil
}
