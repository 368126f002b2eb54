package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/feedback"
)

const feedbackColumns = `id, user_id, email, type, rating, content, page, priority, status, created_at, updated_at`

type feedbackRow struct {
	ID        string         `db:"id"`
	UserID    sql.NullString `db:"user_id"`
	Email     string         `db:"email"`
	Type      string         `db:"type"`
	Rating    int            `db:"rating"`
	Content   string         `db:"content"`
	Page      string         `db:"page"`
	Priority  string         `db:"priority"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func toFeedbackRow(fb feedback.Feedback) feedbackRow {
	return feedbackRow{
		ID:        fb.ID,
		UserID:    nullString(fb.UserID),
		Email:     fb.Email,
		Type:      fb.Type,
		Rating:    fb.Rating,
		Content:   fb.Content,
		Page:      fb.Page,
		Priority:  fb.Priority,
		Status:    fb.Status,
		CreatedAt: fb.CreatedAt.UTC(),
		UpdatedAt: fb.UpdatedAt.UTC(),
	}
}

func (row feedbackRow) feedback() feedback.Feedback {
	return feedback.Feedback{
		ID:        row.ID,
		UserID:    row.UserID.String,
		Email:     row.Email,
		Type:      row.Type,
		Rating:    row.Rating,
		Content:   row.Content,
		Page:      row.Page,
		Priority:  row.Priority,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type feedbackRepository struct {
	db *sqlx.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil)

func NewFeedbackRepository(db *sqlx.DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

func (repo feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	q := `INSERT INTO feedback (` + feedbackColumns + `)
		VALUES (:id, :user_id, :email, :type, :rating, :content, :page, :priority, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toFeedbackRow(fb)); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func (repo feedbackRepository) GetFeedback(ctx context.Context, id string) (feedback.Feedback, error) {
	var row feedbackRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id); err != nil {
		return feedback.Feedback{}, trapNoRows(err, feedback.ErrNotFound, "finding feedback")
	}
	return row.feedback(), nil
}

func (repo feedbackRepository) query(ctx context.Context, w where) ([]feedback.Feedback, error) {
	var rows []feedbackRow
	q := repo.db.Rebind(`SELECT ` + feedbackColumns + ` FROM feedback` + w.String() + ` ORDER BY created_at DESC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	list := make([]feedback.Feedback, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.feedback())
	}
	return list, nil
}

func (repo feedbackRepository) QueryFeedback(ctx context.Context, filter feedback.QueryFilter) ([]feedback.Feedback, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		w.add("priority = ?", filter.Priority)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}
	return repo.query(ctx, w)
}

func (repo feedbackRepository) QueryUserFeedback(ctx context.Context, userID string) ([]feedback.Feedback, error) {
	var w where
	w.add("user_id = ?", userID)
	return repo.query(ctx, w)
}

func (repo feedbackRepository) UpdateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	q := `UPDATE feedback SET status = :status, priority = :priority, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toFeedbackRow(fb))
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "updating feedback")
	}
	if err = rowsAffected(res, feedback.ErrNotFound); err != nil {
		return feedback.Feedback{}, err
	}
	return fb, nil
}

func (repo feedbackRepository) DetachUser(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE feedback SET user_id = NULL WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "detaching feedback")
	}
	return nil
}
