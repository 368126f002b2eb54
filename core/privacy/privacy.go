// Package privacy lets users take out or erase the data held about them.
package privacy

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/feedback"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
)

var ErrWrongPassword = errors.New("incorrect password")

// Export is everything held about a User.
type Export struct {
	ExportedAt   time.Time                   `json:"exported_at"`
	User         user.User                   `json:"user"`
	Subjects     []subject.UserSubject       `json:"subjects"`
	Sessions     []studysession.StudySession `json:"study_sessions"`
	Goals        []goal.Goal                 `json:"goals"`
	Achievements []achievement.Achievement   `json:"achievements"`
	Feedback     []feedback.Feedback         `json:"feedback"`
}

// Filename returns the attachment filename of the export.
func (e Export) Filename() string {
	return fmt.Sprintf("studypal-export-%s.json", e.ExportedAt.Format("2006-01-02"))
}

type DeleteAccount struct {
	Password string `json:"password" validate:"required"`
}

type (
	UserStore interface {
		Delete(ctx context.Context, ids ...string) error
	}
	SubjectStore interface {
		QueryFollowed(ctx context.Context, userID string) ([]subject.UserSubject, error)
		EraseUser(ctx context.Context, userID string) error
	}
	SessionStore interface {
		Query(ctx context.Context, userID string, filter studysession.QueryFilter, ordering []core.DBOrdering) ([]studysession.StudySession, error)
		EraseUser(ctx context.Context, userID string) error
	}
	GoalStore interface {
		Query(ctx context.Context, userID string, filter goal.QueryFilter) ([]goal.Goal, error)
		EraseUser(ctx context.Context, userID string) error
	}
	AchievementStore interface {
		Query(ctx context.Context, userID string) ([]achievement.Achievement, error)
		EraseUser(ctx context.Context, userID string) error
	}
	FeedbackStore interface {
		QueryByUser(ctx context.Context, userID string) ([]feedback.Feedback, error)
		DetachUser(ctx context.Context, userID string) error
	}

	Stores struct {
		Users        UserStore
		Subjects     SubjectStore
		Sessions     SessionStore
		Goals        GoalStore
		Achievements AchievementStore
		Feedback     FeedbackStore
	}

	Service struct {
		Stores
	}
)

func NewService(stores Stores) *Service {
	return &Service{Stores: stores}
}

// Export gathers the data of `usr`.
func (svc *Service) Export(ctx context.Context, usr user.User) (Export, error) {
	var (
		exp = Export{ExportedAt: time.Now().UTC(), User: usr}
		err error
	)
	if exp.Subjects, err = svc.Subjects.QueryFollowed(ctx, usr.ID); err != nil {
		return Export{}, errors.Wrap(err, "querying subjects")
	}
	if exp.Sessions, err = svc.Sessions.Query(ctx, usr.ID, studysession.QueryFilter{}, nil); err != nil {
		return Export{}, errors.Wrap(err, "querying sessions")
	}
	if exp.Goals, err = svc.Goals.Query(ctx, usr.ID, goal.QueryFilter{}); err != nil {
		return Export{}, errors.Wrap(err, "querying goals")
	}
	if exp.Achievements, err = svc.Achievements.Query(ctx, usr.ID); err != nil {
		return Export{}, errors.Wrap(err, "querying achievements")
	}
	if exp.Feedback, err = svc.Feedback.QueryByUser(ctx, usr.ID); err != nil {
		return Export{}, errors.Wrap(err, "querying feedback")
	}
	return exp, nil
}

// DeleteAccount erases `usr` and everything they own once `password` is confirmed.
// Their feedback is kept, detached from the account.
func (svc *Service) DeleteAccount(ctx context.Context, usr user.User, password string) error {
	if err := usr.CheckPassword(password); err != nil {
		return core.NewValidationError(ErrWrongPassword, core.FieldError{Field: "password", Error: ErrWrongPassword.Error()})
	}

	if err := svc.Feedback.DetachUser(ctx, usr.ID); err != nil {
		return errors.Wrap(err, "detaching feedback")
	}
	erasers := []struct {
		name  string
		erase func(context.Context, string) error
	}{
		{"subjects", svc.Subjects.EraseUser},
		{"sessions", svc.Sessions.EraseUser},
		{"goals", svc.Goals.EraseUser},
		{"achievements", svc.Achievements.EraseUser},
	}
	for _, e := range erasers {
		if err := e.erase(ctx, usr.ID); err != nil {
			return errors.Wrap(err, "erasing "+e.name)
		}
	}
	return errors.Wrap(svc.Users.Delete(ctx, usr.ID), "deleting user")
}
