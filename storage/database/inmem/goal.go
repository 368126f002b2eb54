package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/goal"
)

type goalRepository struct {
	db *DB
}

var _ goal.Repository = (*goalRepository)(nil)

func NewGoalRepository(db *DB) *goalRepository {
	return &goalRepository{db: db}
}

func (repo *goalRepository) CreateGoal(_ context.Context, g goal.Goal) (goal.Goal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.goals[g.ID] = g
	return g, nil
}

func (repo *goalRepository) GetGoal(_ context.Context, userID, id string) (goal.Goal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if g, ok := repo.db.goals[id]; ok && g.UserID == userID {
		return g, nil
	}
	return goal.Goal{}, goal.ErrNotFound
}

func (repo *goalRepository) QueryGoals(_ context.Context, userID string, filter goal.QueryFilter) ([]goal.Goal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	goals := make([]goal.Goal, 0)
	for _, g := range repo.db.goals {
		if g.UserID == userID && (filter.Status == "" || g.Status == filter.Status) {
			goals = append(goals, g)
		}
	}
	sortBy(goals, []core.DBOrdering{{Field: "created_at"}}, func(_ string, a, b goal.Goal) int {
		return cmpTime(a.CreatedAt, b.CreatedAt)
	})
	return goals, nil
}

func (repo *goalRepository) UpdateGoal(_ context.Context, g goal.Goal) (goal.Goal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if orig, ok := repo.db.goals[g.ID]; !ok || orig.UserID != g.UserID {
		return goal.Goal{}, goal.ErrNotFound
	}
	repo.db.goals[g.ID] = g
	return g, nil
}

func (repo *goalRepository) DeleteGoal(_ context.Context, userID, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if g, ok := repo.db.goals[id]; !ok || g.UserID != userID {
		return goal.ErrNotFound
	}
	delete(repo.db.goals, id)
	return nil
}

func (repo *goalRepository) MarkMissed(_ context.Context, now time.Time) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, g := range repo.db.goals {
		if g.Status == goal.StatusActive && g.Deadline != nil && g.Deadline.Before(now) {
			g.Status = goal.StatusMissed
			g.UpdatedAt = now
			repo.db.goals[id] = g
			n++
		}
	}
	return n, nil
}

func (repo *goalRepository) EraseUser(_ context.Context, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for k, g := range repo.db.goals {
		if g.UserID == userID {
			delete(repo.db.goals, k)
		}
	}
	return nil
}
