package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/goal"
)

const goalColumns = `id, user_id, subject_id, title, description, target_minutes, progress_minutes, deadline, status, completed_at, created_at, updated_at`

type goalRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	SubjectID       sql.NullString `db:"subject_id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	TargetMinutes   int            `db:"target_minutes"`
	ProgressMinutes int            `db:"progress_minutes"`
	Deadline        sql.NullTime   `db:"deadline"`
	Status          string         `db:"status"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func toGoalRow(g goal.Goal) goalRow {
	return goalRow{
		ID:              g.ID,
		UserID:          g.UserID,
		SubjectID:       nullString(g.SubjectID),
		Title:           g.Title,
		Description:     g.Description,
		TargetMinutes:   g.TargetMinutes,
		ProgressMinutes: g.ProgressMinutes,
		Deadline:        nullTimePtr(g.Deadline),
		Status:          g.Status,
		CompletedAt:     nullTimePtr(g.CompletedAt),
		CreatedAt:       g.CreatedAt.UTC(),
		UpdatedAt:       g.UpdatedAt.UTC(),
	}
}

func (row goalRow) goal() goal.Goal {
	return goal.Goal{
		ID:              row.ID,
		UserID:          row.UserID,
		SubjectID:       row.SubjectID.String,
		Title:           row.Title,
		Description:     row.Description,
		TargetMinutes:   row.TargetMinutes,
		ProgressMinutes: row.ProgressMinutes,
		Deadline:        timePtr(row.Deadline),
		Status:          row.Status,
		CompletedAt:     timePtr(row.CompletedAt),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type goalRepository struct {
	db *sqlx.DB
}

var _ goal.Repository = (*goalRepository)(nil)

func NewGoalRepository(db *sqlx.DB) *goalRepository {
	return &goalRepository{db: db}
}

func (repo goalRepository) CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	q := `INSERT INTO goal (` + goalColumns + `)
		VALUES (:id, :user_id, :subject_id, :title, :description, :target_minutes, :progress_minutes, :deadline, :status, :completed_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toGoalRow(g)); err != nil {
		return goal.Goal{}, errors.Wrap(err, "inserting goal")
	}
	return g, nil
}

func (repo goalRepository) GetGoal(ctx context.Context, userID, id string) (goal.Goal, error) {
	var row goalRow
	q := `SELECT ` + goalColumns + ` FROM goal WHERE id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return goal.Goal{}, trapNoRows(err, goal.ErrNotFound, "finding goal")
	}
	return row.goal(), nil
}

func (repo goalRepository) QueryGoals(ctx context.Context, userID string, filter goal.QueryFilter) ([]goal.Goal, error) {
	var w where
	w.add("user_id = ?", userID)
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []goalRow
	q := repo.db.Rebind(`SELECT ` + goalColumns + ` FROM goal` + w.String() + ` ORDER BY created_at DESC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying goals")
	}
	goals := make([]goal.Goal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, row.goal())
	}
	return goals, nil
}

func (repo goalRepository) UpdateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	q := `UPDATE goal SET subject_id = :subject_id, title = :title, description = :description,
		target_minutes = :target_minutes, progress_minutes = :progress_minutes, deadline = :deadline,
		status = :status, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id`
	res, err := repo.db.NamedExecContext(ctx, q, toGoalRow(g))
	if err != nil {
		return goal.Goal{}, errors.Wrap(err, "updating goal")
	}
	if err = rowsAffected(res, goal.ErrNotFound); err != nil {
		return goal.Goal{}, err
	}
	return g, nil
}

func (repo goalRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM goal WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting goal")
	}
	return rowsAffected(res, goal.ErrNotFound)
}

func (repo goalRepository) MarkMissed(ctx context.Context, now time.Time) (int, error) {
	q := `UPDATE goal SET status = $1, updated_at = $2 WHERE status = $3 AND deadline IS NOT NULL AND deadline < $2`
	res, err := repo.db.ExecContext(ctx, q, goal.StatusMissed, now.UTC(), goal.StatusActive)
	if err != nil {
		return 0, errors.Wrap(err, "marking missed goals")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reading rows affected")
	}
	return int(n), nil
}

func (repo goalRepository) EraseUser(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM goal WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "erasing goals")
	}
	return nil
}
