// Package subject manages the catalogue of study subjects and the subjects each user follows.
package subject

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
)

// Proficiency levels of a UserSubject.
const (
	ProficiencyBeginner     = "beginner"
	ProficiencyIntermediate = "intermediate"
	ProficiencyAdvanced     = "advanced"
)

const defaultColor = "#4f46e5"

var (
	ErrNotFound     = core.NewNotFoundError("subject")
	ErrNameExists   = errors.New("a subject with this name already exists")
	ErrUnknownOwned = core.NewNotFoundError("user subject")
)

type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserSubject is a Subject followed by a User.
type UserSubject struct {
	UserID      string    `json:"-"`
	SubjectID   string    `json:"subject_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Proficiency string    `json:"proficiency"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewSubject struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Color       string `json:"color" validate:"omitempty,hexcolor_"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	ns.Color = core.CleanString(ns.Color, true /* lower */)
	return validate.Struct(ns)
}

type FollowSubject struct {
	SubjectID   string `json:"subject_id" validate:"required,uuid"`
	Proficiency string `json:"proficiency" validate:"omitempty,oneof=beginner intermediate advanced"`
}

func (fs *FollowSubject) Validate(validate *validator.Validate) error {
	fs.SubjectID = core.CleanString(fs.SubjectID, true /* lower */)
	fs.Proficiency = core.CleanString(fs.Proficiency, true /* lower */)
	if fs.Proficiency == "" {
		fs.Proficiency = ProficiencyBeginner
	}
	return validate.Struct(fs)
}

type Repository interface {
	CreateSubject(ctx context.Context, sub Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	GetSubjectByName(ctx context.Context, name string) (Subject, error)
	QuerySubjects(ctx context.Context) ([]Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	UpsertUserSubject(ctx context.Context, us UserSubject) (UserSubject, error)
	QueryUserSubjects(ctx context.Context, userID string) ([]UserSubject, error)
	DeleteUserSubject(ctx context.Context, userID, subjectID string) error
	// EraseUser forgets every subject followed by `userID`.
	EraseUser(ctx context.Context, userID string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a Subject to the catalogue. Names are unique, case-insensitively.
func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	if _, err := svc.repo.GetSubjectByName(ctx, ns.Name); err == nil {
		return Subject{}, core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	} else if !core.IsNotFound(err) {
		return Subject{}, errors.Wrap(err, "finding subject by name")
	}

	color := ns.Color
	if color == "" {
		color = defaultColor
	}
	return svc.repo.CreateSubject(ctx, Subject{
		ID:          uuid.NewString(),
		Name:        ns.Name,
		Description: ns.Description,
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Subject{}, ErrNotFound
	}
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.Get(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSubject(ctx, id)
}

// Follow adds (or updates the proficiency of) a Subject followed by the User.
func (svc *Service) Follow(ctx context.Context, userID string, fs FollowSubject) (UserSubject, error) {
	sub, err := svc.Get(ctx, fs.SubjectID)
	if err != nil {
		if core.IsNotFound(err) {
			return UserSubject{}, core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "unknown subject"})
		}
		return UserSubject{}, errors.Wrap(err, "finding subject")
	}
	return svc.repo.UpsertUserSubject(ctx, UserSubject{
		UserID:      userID,
		SubjectID:   sub.ID,
		Name:        sub.Name,
		Color:       sub.Color,
		Proficiency: fs.Proficiency,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryFollowed(ctx context.Context, userID string) ([]UserSubject, error) {
	return svc.repo.QueryUserSubjects(ctx, userID)
}

func (svc *Service) Unfollow(ctx context.Context, userID, subjectID string) error {
	if _, err := uuid.Parse(subjectID); err != nil {
		return ErrUnknownOwned
	}
	return svc.repo.DeleteUserSubject(ctx, userID, strings.ToLower(subjectID))
}

// Names maps the ids of the given subjects to their names. Unknown ids are skipped.
func (svc *Service) Names(ctx context.Context, ids ...string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	subjects, err := svc.repo.QuerySubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	for _, sub := range subjects {
		if core.StringInSlice(sub.ID, ids) {
			names[sub.ID] = sub.Name
		}
	}
	return names, nil
}

func (svc *Service) EraseUser(ctx context.Context, userID string) error {
	return svc.repo.EraseUser(ctx, userID)
}
