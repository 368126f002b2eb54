package inmemdb

import (
	"context"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/achievement"
)

type achievementRepository struct {
	db *DB
}

var _ achievement.Repository = (*achievementRepository)(nil)

func NewAchievementRepository(db *DB) *achievementRepository {
	return &achievementRepository{db: db}
}

func (repo *achievementRepository) UnlockAchievement(_ context.Context, a achievement.Achievement) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := compositeKey(a.UserID, a.Code)
	if _, ok := repo.db.achievements[key]; ok {
		return false, nil
	}
	repo.db.achievements[key] = a
	return true, nil
}

func (repo *achievementRepository) QueryAchievements(_ context.Context, userID string) ([]achievement.Achievement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	achievements := make([]achievement.Achievement, 0)
	for _, a := range repo.db.achievements {
		if a.UserID == userID {
			achievements = append(achievements, a)
		}
	}
	sortBy(achievements, []core.DBOrdering{{Field: "unlocked_at", Ascending: true}}, func(_ string, a, b achievement.Achievement) int {
		if c := cmpTime(a.UnlockedAt, b.UnlockedAt); c != 0 {
			return c
		}
		return cmpString(a.Code, b.Code)
	})
	return achievements, nil
}

func (repo *achievementRepository) EraseUser(_ context.Context, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for k, a := range repo.db.achievements {
		if a.UserID == userID {
			delete(repo.db.achievements, k)
		}
	}
	return nil
}
