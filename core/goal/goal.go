// Package goal tracks the study goals of users and their progress.
package goal

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/studysession"
)

// Goal statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusMissed    = "missed"
)

var ErrNotFound = core.NewNotFoundError("goal")

type Goal struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	SubjectID       string     `json:"subject_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	TargetMinutes   int        `json:"target_minutes"`
	ProgressMinutes int        `json:"progress_minutes"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Status          string     `json:"status"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Progress returns the completion percentage of the goal, capped at 100.
func (g Goal) Progress() int {
	if g.TargetMinutes <= 0 {
		return 0
	}
	pct := g.ProgressMinutes * 100 / g.TargetMinutes
	if pct > 100 {
		return 100
	}
	return pct
}

// Counts reports whether a session in `subjectID` counts towards the goal.
func (g Goal) Counts(subjectID string) bool {
	return g.SubjectID == "" || g.SubjectID == subjectID
}

// accrued reports whether `sess` was added to the goal's progress when it was logged:
// the goal was active then and the session counted toward it.
func (g Goal) accrued(sess studysession.StudySession) bool {
	if g.Status == StatusMissed || sess.CreatedAt.Before(g.CreatedAt) {
		return false
	}
	return g.CompletedAt == nil || !sess.CreatedAt.After(*g.CompletedAt)
}

// GoalData is the payload used to set or edit a Goal.
type GoalData struct {
	SubjectID     string     `json:"subject_id" validate:"omitempty,uuid"`
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description" validate:"max=2000"`
	TargetMinutes int        `json:"target_minutes" validate:"required,min=1,max=100000"`
	Deadline      *time.Time `json:"deadline"`
	Status        string     `json:"status" validate:"omitempty,oneof=active completed missed"`
}

func (gd *GoalData) Validate(validate *validator.Validate) error {
	gd.SubjectID = core.CleanString(gd.SubjectID, true /* lower */)
	gd.Title = core.Sanitize(gd.Title)
	gd.Description = core.Sanitize(gd.Description)
	gd.Status = core.CleanString(gd.Status, true /* lower */)
	if gd.Deadline != nil {
		d := gd.Deadline.UTC()
		gd.Deadline = &d
	}
	return validate.Struct(gd)
}

type QueryFilter struct {
	Status string
}

type Repository interface {
	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	GetGoal(ctx context.Context, userID, id string) (Goal, error)
	// QueryGoals lists the goals of `userID`; all statuses when `filter.Status` is empty.
	QueryGoals(ctx context.Context, userID string, filter QueryFilter) ([]Goal, error)
	UpdateGoal(ctx context.Context, g Goal) (Goal, error)
	DeleteGoal(ctx context.Context, userID, id string) error
	// MarkMissed sets every active goal with a deadline before `now` as missed and returns how many.
	MarkMissed(ctx context.Context, now time.Time) (int, error)
	// EraseUser deletes every goal of `userID`.
	EraseUser(ctx context.Context, userID string) error
}

type Service struct {
	repo Repository
}

var _ studysession.ChangeObserver = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create sets a new active Goal. `gd` must have been validated.
func (svc *Service) Create(ctx context.Context, userID string, gd GoalData) (Goal, error) {
	now := time.Now().UTC()
	return svc.repo.CreateGoal(ctx, Goal{
		ID:            uuid.NewString(),
		UserID:        userID,
		SubjectID:     gd.SubjectID,
		Title:         gd.Title,
		Description:   gd.Description,
		TargetMinutes: gd.TargetMinutes,
		Deadline:      gd.Deadline,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Goal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Goal{}, ErrNotFound
	}
	return svc.repo.GetGoal(ctx, userID, strings.ToLower(id))
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter) ([]Goal, error) {
	filter.Status = core.CleanString(filter.Status, true /* lower */)
	return svc.repo.QueryGoals(ctx, userID, filter)
}

// Update edits the goal `id`. `gd` must have been validated.
// An active goal whose progress already meets the new target is completed.
// A goal completed by its progress is reopened when the target is raised above it, unless a status is given.
func (svc *Service) Update(ctx context.Context, userID, id string, gd GoalData) (Goal, error) {
	g, err := svc.Get(ctx, userID, id)
	if err != nil {
		return Goal{}, err
	}
	now := time.Now().UTC()
	reached := g.ProgressMinutes >= g.TargetMinutes

	g.SubjectID = gd.SubjectID
	g.Title = gd.Title
	g.Description = gd.Description
	g.TargetMinutes = gd.TargetMinutes
	g.Deadline = gd.Deadline
	switch {
	case gd.Status != "":
		g.Status = gd.Status
	case g.Status == StatusCompleted && reached && g.ProgressMinutes < g.TargetMinutes:
		g.Status = StatusActive
	}

	if g.Status == StatusActive && g.ProgressMinutes >= g.TargetMinutes {
		g.Status = StatusCompleted
	}
	switch {
	case g.Status == StatusCompleted && g.CompletedAt == nil:
		g.CompletedAt = &now
	case g.Status != StatusCompleted:
		g.CompletedAt = nil
	}

	g.UpdatedAt = now
	return svc.repo.UpdateGoal(ctx, g)
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := svc.Get(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.DeleteGoal(ctx, userID, strings.ToLower(id))
}

// SessionLogged adds the duration of `sess` to every matching active goal of its owner.
// Goals reaching their target are completed.
func (svc *Service) SessionLogged(ctx context.Context, sess studysession.StudySession) error {
	goals, err := svc.repo.QueryGoals(ctx, sess.UserID, QueryFilter{Status: StatusActive})
	if err != nil {
		return errors.Wrap(err, "querying active goals")
	}
	now := time.Now().UTC()
	for _, g := range goals {
		if !g.Counts(sess.SubjectID) {
			continue
		}
		g.ProgressMinutes += sess.DurationMinutes
		if g.ProgressMinutes >= g.TargetMinutes {
			g.Status = StatusCompleted
			g.CompletedAt = &now
		}
		g.UpdatedAt = now
		if _, err := svc.repo.UpdateGoal(ctx, g); err != nil {
			return errors.Wrapf(err, "updating goal %s", g.ID)
		}
	}
	return nil
}

// SessionUpdated moves the minutes of an edited session between the goals it counts toward.
func (svc *Service) SessionUpdated(ctx context.Context, before, after studysession.StudySession) error {
	return svc.adjust(ctx, before, func(g Goal) int {
		delta := 0
		if g.Counts(before.SubjectID) {
			delta -= before.DurationMinutes
		}
		if g.Counts(after.SubjectID) {
			delta += after.DurationMinutes
		}
		return delta
	})
}

// SessionDeleted takes the minutes of a removed session back from the goals it counted toward.
func (svc *Service) SessionDeleted(ctx context.Context, sess studysession.StudySession) error {
	return svc.adjust(ctx, sess, func(g Goal) int {
		if g.Counts(sess.SubjectID) {
			return -sess.DurationMinutes
		}
		return 0
	})
}

// adjust applies `delta` to the progress of every goal that accrued `sess` when it was logged.
// A goal completed by its progress is reopened once the progress falls short of the target again.
func (svc *Service) adjust(ctx context.Context, sess studysession.StudySession, delta func(g Goal) int) error {
	goals, err := svc.repo.QueryGoals(ctx, sess.UserID, QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying goals")
	}
	now := time.Now().UTC()
	for _, g := range goals {
		if !g.accrued(sess) {
			continue
		}
		d := delta(g)
		if d == 0 {
			continue
		}

		reached := g.ProgressMinutes >= g.TargetMinutes
		g.ProgressMinutes += d
		if g.ProgressMinutes < 0 {
			g.ProgressMinutes = 0
		}
		switch {
		case g.Status == StatusActive && g.ProgressMinutes >= g.TargetMinutes:
			g.Status = StatusCompleted
			g.CompletedAt = &now
		case g.Status == StatusCompleted && reached && g.ProgressMinutes < g.TargetMinutes:
			g.Status = StatusActive
			g.CompletedAt = nil
		}
		g.UpdatedAt = now
		if _, err := svc.repo.UpdateGoal(ctx, g); err != nil {
			return errors.Wrapf(err, "updating goal %s", g.ID)
		}
	}
	return nil
}

// MarkMissed flags the active goals past their deadline as missed.
func (svc *Service) MarkMissed(ctx context.Context) (int, error) {
	return svc.repo.MarkMissed(ctx, time.Now().UTC())
}

func (svc *Service) EraseUser(ctx context.Context, userID string) error {
	return svc.repo.EraseUser(ctx, userID)
}
