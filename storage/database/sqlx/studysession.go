package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/studysession"
)

const sessionColumns = `id, user_id, subject_id, title, notes, started_at, ended_at, duration_minutes, focus_rating, tags, created_at, updated_at`

type sessionRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	SubjectID       sql.NullString `db:"subject_id"`
	Title           string         `db:"title"`
	Notes           string         `db:"notes"`
	StartedAt       time.Time      `db:"started_at"`
	EndedAt         time.Time      `db:"ended_at"`
	DurationMinutes int            `db:"duration_minutes"`
	FocusRating     int            `db:"focus_rating"`
	Tags            stringList     `db:"tags"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func toSessionRow(sess studysession.StudySession) sessionRow {
	return sessionRow{
		ID:              sess.ID,
		UserID:          sess.UserID,
		SubjectID:       nullString(sess.SubjectID),
		Title:           sess.Title,
		Notes:           sess.Notes,
		StartedAt:       sess.StartedAt.UTC(),
		EndedAt:         sess.EndedAt.UTC(),
		DurationMinutes: sess.DurationMinutes,
		FocusRating:     sess.FocusRating,
		Tags:            sess.Tags,
		CreatedAt:       sess.CreatedAt.UTC(),
		UpdatedAt:       sess.UpdatedAt.UTC(),
	}
}

func (row sessionRow) session() studysession.StudySession {
	tags := []string(row.Tags)
	if tags == nil {
		tags = []string{}
	}
	return studysession.StudySession{
		ID:              row.ID,
		UserID:          row.UserID,
		SubjectID:       row.SubjectID.String,
		Title:           row.Title,
		Notes:           row.Notes,
		StartedAt:       row.StartedAt.UTC(),
		EndedAt:         row.EndedAt.UTC(),
		DurationMinutes: row.DurationMinutes,
		FocusRating:     row.FocusRating,
		Tags:            tags,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ studysession.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo sessionRepository) CreateSession(ctx context.Context, sess studysession.StudySession) (studysession.StudySession, error) {
	q := `INSERT INTO study_session (` + sessionColumns + `)
		VALUES (:id, :user_id, :subject_id, :title, :notes, :started_at, :ended_at, :duration_minutes, :focus_rating, :tags, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toSessionRow(sess)); err != nil {
		return studysession.StudySession{}, errors.Wrap(err, "inserting study session")
	}
	return sess, nil
}

func (repo sessionRepository) GetSession(ctx context.Context, userID, id string) (studysession.StudySession, error) {
	var row sessionRow
	q := `SELECT ` + sessionColumns + ` FROM study_session WHERE id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return studysession.StudySession{}, trapNoRows(err, studysession.ErrNotFound, "finding study session")
	}
	return row.session(), nil
}

func (repo sessionRepository) QuerySessions(
	ctx context.Context,
	userID string,
	filter studysession.QueryFilter,
	ordering ...core.DBOrdering,
) ([]studysession.StudySession, error) {
	var w where
	w.add("user_id = ?", userID)
	if filter.SubjectID != "" {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if !filter.From.IsZero() {
		w.add("started_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		w.add("started_at <= ?", filter.To.UTC())
	}

	q := `SELECT ` + sessionColumns + ` FROM study_session` + w.String() +
		core.OrderByClause(ordering, studysession.DefaultOrdering)
	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying study sessions")
	}

	sessions := make([]studysession.StudySession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.session())
	}
	return sessions, nil
}

func (repo sessionRepository) UpdateSession(ctx context.Context, sess studysession.StudySession) (studysession.StudySession, error) {
	q := `UPDATE study_session SET subject_id = :subject_id, title = :title, notes = :notes, started_at = :started_at,
		ended_at = :ended_at, duration_minutes = :duration_minutes, focus_rating = :focus_rating, tags = :tags,
		updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id`
	res, err := repo.db.NamedExecContext(ctx, q, toSessionRow(sess))
	if err != nil {
		return studysession.StudySession{}, errors.Wrap(err, "updating study session")
	}
	if err = rowsAffected(res, studysession.ErrNotFound); err != nil {
		return studysession.StudySession{}, err
	}
	return sess, nil
}

func (repo sessionRepository) DeleteSession(ctx context.Context, userID, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM study_session WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting study session")
	}
	return rowsAffected(res, studysession.ErrNotFound)
}

func (repo sessionRepository) Totals(ctx context.Context) (count int, minutes int, err error) {
	var row struct {
		Count   int `db:"count"`
		Minutes int `db:"minutes"`
	}
	q := `SELECT COUNT(*) AS count, COALESCE(SUM(duration_minutes), 0) AS minutes FROM study_session`
	if err = repo.db.GetContext(ctx, &row, q); err != nil {
		return 0, 0, errors.Wrap(err, "summing study sessions")
	}
	return row.Count, row.Minutes, nil
}

func (repo sessionRepository) EraseUser(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM study_session WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "erasing study sessions")
	}
	return nil
}
