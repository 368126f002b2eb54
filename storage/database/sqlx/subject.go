package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

type subjectRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Color       string    `db:"color"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row subjectRow) subject() subject.Subject {
	return subject.Subject{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Color:       row.Color,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	q := `INSERT INTO subject (id, name, description, color, created_at) VALUES (:id, :name, :description, :color, :created_at)`
	row := subjectRow(sub)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, core.NewValidationError(subject.ErrNameExists, core.FieldError{Field: "name", Error: subject.ErrNameExists.Error()})
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo subjectRepository) get(ctx context.Context, cond string, arg interface{}) (subject.Subject, error) {
	var row subjectRow
	q := `SELECT id, name, description, color, created_at FROM subject WHERE ` + cond
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return subject.Subject{}, trapNoRows(err, subject.ErrNotFound, "finding subject")
	}
	return row.subject(), nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, id string) (subject.Subject, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo subjectRepository) GetSubjectByName(ctx context.Context, name string) (subject.Subject, error) {
	return repo.get(ctx, "LOWER(name) = LOWER($1)", name)
}

func (repo subjectRepository) QuerySubjects(ctx context.Context) ([]subject.Subject, error) {
	var rows []subjectRow
	q := `SELECT id, name, description, color, created_at FROM subject ORDER BY LOWER(name)`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.subject())
	}
	return subjects, nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return rowsAffected(res, subject.ErrNotFound)
}

type userSubjectRow struct {
	UserID      string    `db:"user_id"`
	SubjectID   string    `db:"subject_id"`
	Name        string    `db:"name"`
	Color       string    `db:"color"`
	Proficiency string    `db:"proficiency"`
	CreatedAt   time.Time `db:"created_at"`
}

func (repo subjectRepository) UpsertUserSubject(ctx context.Context, us subject.UserSubject) (subject.UserSubject, error) {
	q := `INSERT INTO user_subject (user_id, subject_id, proficiency, created_at)
		VALUES (:user_id, :subject_id, :proficiency, :created_at)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET proficiency = EXCLUDED.proficiency
		RETURNING created_at`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return subject.UserSubject{}, errors.Wrap(err, "preparing user subject upsert")
	}
	defer func() { _ = stmt.Close() }()

	var createdAt time.Time
	if err = stmt.GetContext(ctx, &createdAt, userSubjectRow(us)); err != nil {
		return subject.UserSubject{}, errors.Wrap(err, "upserting user subject")
	}
	us.CreatedAt = createdAt.UTC()
	return us, nil
}

func (repo subjectRepository) QueryUserSubjects(ctx context.Context, userID string) ([]subject.UserSubject, error) {
	var rows []userSubjectRow
	q := `SELECT us.user_id, us.subject_id, s.name, s.color, us.proficiency, us.created_at
		FROM user_subject us JOIN subject s ON s.id = us.subject_id
		WHERE us.user_id = $1 ORDER BY LOWER(s.name)`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying user subjects")
	}
	followed := make([]subject.UserSubject, 0, len(rows))
	for _, row := range rows {
		us := subject.UserSubject(row)
		us.CreatedAt = us.CreatedAt.UTC()
		followed = append(followed, us)
	}
	return followed, nil
}

func (repo subjectRepository) DeleteUserSubject(ctx context.Context, userID, subjectID string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM user_subject WHERE user_id = $1 AND subject_id = $2`, userID, subjectID)
	if err != nil {
		return errors.Wrap(err, "deleting user subject")
	}
	return rowsAffected(res, subject.ErrUnknownOwned)
}

func (repo subjectRepository) EraseUser(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM user_subject WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "erasing user subjects")
	}
	return nil
}
