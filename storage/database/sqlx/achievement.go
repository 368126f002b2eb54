package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/achievement"
)

type achievementRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Code        string    `db:"code"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	UnlockedAt  time.Time `db:"unlocked_at"`
}

type achievementRepository struct {
	db *sqlx.DB
}

var _ achievement.Repository = (*achievementRepository)(nil)

func NewAchievementRepository(db *sqlx.DB) *achievementRepository {
	return &achievementRepository{db: db}
}

func (repo achievementRepository) UnlockAchievement(ctx context.Context, a achievement.Achievement) (bool, error) {
	q := `INSERT INTO achievement (id, user_id, code, title, description, unlocked_at)
		VALUES (:id, :user_id, :code, :title, :description, :unlocked_at)
		ON CONFLICT (user_id, code) DO NOTHING`
	a.UnlockedAt = a.UnlockedAt.UTC()
	res, err := repo.db.NamedExecContext(ctx, q, achievementRow(a))
	if err != nil {
		return false, errors.Wrap(err, "inserting achievement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading rows affected")
	}
	return n > 0, nil
}

func (repo achievementRepository) QueryAchievements(ctx context.Context, userID string) ([]achievement.Achievement, error) {
	var rows []achievementRow
	q := `SELECT id, user_id, code, title, description, unlocked_at FROM achievement WHERE user_id = $1 ORDER BY unlocked_at, code`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying achievements")
	}
	achievements := make([]achievement.Achievement, 0, len(rows))
	for _, row := range rows {
		a := achievement.Achievement(row)
		a.UnlockedAt = a.UnlockedAt.UTC()
		achievements = append(achievements, a)
	}
	return achievements, nil
}

func (repo achievementRepository) EraseUser(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM achievement WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "erasing achievements")
	}
	return nil
}
