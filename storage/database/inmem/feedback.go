package inmemdb

import (
	"context"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/feedback"
)

type feedbackRepository struct {
	db *DB
}

var _ feedback.Repository = (*feedbackRepository)(nil)

func NewFeedbackRepository(db *DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

var newestFirst = []core.DBOrdering{{Field: "created_at"}}

func (repo *feedbackRepository) CreateFeedback(_ context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.feedback[fb.ID] = fb
	return fb, nil
}

func (repo *feedbackRepository) GetFeedback(_ context.Context, id string) (feedback.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if fb, ok := repo.db.feedback[id]; ok {
		return fb, nil
	}
	return feedback.Feedback{}, feedback.ErrNotFound
}

func (repo *feedbackRepository) query(keep func(fb feedback.Feedback) bool) []feedback.Feedback {
	list := make([]feedback.Feedback, 0)
	for _, fb := range repo.db.feedback {
		if keep(fb) {
			list = append(list, fb)
		}
	}
	sortBy(list, newestFirst, func(_ string, a, b feedback.Feedback) int {
		return cmpTime(a.CreatedAt, b.CreatedAt)
	})
	return list
}

func (repo *feedbackRepository) QueryFeedback(_ context.Context, filter feedback.QueryFilter) ([]feedback.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(fb feedback.Feedback) bool {
		return (filter.Status == "" || fb.Status == filter.Status) &&
			(filter.Priority == "" || fb.Priority == filter.Priority) &&
			(filter.Type == "" || fb.Type == filter.Type)
	}), nil
}

func (repo *feedbackRepository) QueryUserFeedback(_ context.Context, userID string) ([]feedback.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(fb feedback.Feedback) bool { return fb.UserID == userID }), nil
}

func (repo *feedbackRepository) UpdateFeedback(_ context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.feedback[fb.ID]; !ok {
		return feedback.Feedback{}, feedback.ErrNotFound
	}
	repo.db.feedback[fb.ID] = fb
	return fb, nil
}

func (repo *feedbackRepository) DetachUser(_ context.Context, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for k, fb := range repo.db.feedback {
		if fb.UserID == userID {
			fb.UserID = ""
			repo.db.feedback[k] = fb
		}
	}
	return nil
}
