// Package achievement unlocks badges from the study activity of users.
package achievement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
)

// Achievement codes.
const (
	FirstSession = "first_session"
	TenHours     = "ten_hours"
	FiftyHours   = "fifty_hours"
	WeekStreak   = "week_streak"
	GoalGetter   = "goal_getter"
	NightOwl     = "night_owl"
)

// Definition describes an achievement of the catalogue.
type Definition struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Catalogue lists every achievement, in display order.
var Catalogue = []Definition{
	{FirstSession, "First Steps", "Log your first study session.", "🎯"},
	{TenHours, "Ten Hours", "Study for 10 hours in total.", "⏱️"},
	{FiftyHours, "Fifty Hours", "Study for 50 hours in total.", "🏆"},
	{WeekStreak, "Week Streak", "Study 7 days in a row.", "🔥"},
	{GoalGetter, "Goal Getter", "Complete a goal.", "✅"},
	{NightOwl, "Night Owl", "Start a session between midnight and 5am (UTC).", "🦉"},
}

// Achievement is an unlocked achievement.
type Achievement struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// Lookup returns the catalogue Definition of `code`.
func Lookup(code string) (Definition, bool) {
	for _, def := range Catalogue {
		if def.Code == code {
			return def, true
		}
	}
	return Definition{}, false
}

// Status is a catalogue entry seen by a given user.
type Status struct {
	Definition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at"`
}

// Stats summarises the activity achievements are computed from.
type Stats struct {
	Sessions       int
	TotalMinutes   int
	LongestStreak  int
	CompletedGoals int
	NightSession   bool
}

// Earned returns the codes of the achievements `st` qualifies for, in catalogue order.
func Earned(st Stats) []string {
	rules := map[string]bool{
		FirstSession: st.Sessions >= 1,
		TenHours:     st.TotalMinutes >= 600,
		FiftyHours:   st.TotalMinutes >= 3000,
		WeekStreak:   st.LongestStreak >= 7,
		GoalGetter:   st.CompletedGoals >= 1,
		NightOwl:     st.NightSession,
	}
	codes := make([]string, 0, len(rules))
	for _, def := range Catalogue {
		if rules[def.Code] {
			codes = append(codes, def.Code)
		}
	}
	return codes
}

// isNightSession reports whether `sess` started between 00:00 and 04:59 UTC.
func isNightSession(sess studysession.StudySession) bool {
	return sess.StartedAt.UTC().Hour() < 5
}

type (
	Repository interface {
		// UnlockAchievement stores `a` unless its code is already unlocked for the user.
		UnlockAchievement(ctx context.Context, a Achievement) (unlocked bool, err error)
		QueryAchievements(ctx context.Context, userID string) ([]Achievement, error)
		EraseUser(ctx context.Context, userID string) error
	}

	SessionQuerier interface {
		Query(ctx context.Context, userID string, filter studysession.QueryFilter, ordering []core.DBOrdering) ([]studysession.StudySession, error)
	}

	GoalQuerier interface {
		Query(ctx context.Context, userID string, filter goal.QueryFilter) ([]goal.Goal, error)
	}

	Service struct {
		repo     Repository
		sessions SessionQuerier
		goals    GoalQuerier
	}
)

var _ studysession.Observer = (*Service)(nil)

func NewService(repo Repository, sessions SessionQuerier, goals GoalQuerier) *Service {
	return &Service{repo: repo, sessions: sessions, goals: goals}
}

// Evaluate unlocks every achievement the User now qualifies for and returns the newly unlocked codes.
func (svc *Service) Evaluate(ctx context.Context, userID string) ([]string, error) {
	sessions, err := svc.sessions.Query(ctx, userID, studysession.QueryFilter{}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	completed, err := svc.goals.Query(ctx, userID, goal.QueryFilter{Status: goal.StatusCompleted})
	if err != nil {
		return nil, errors.Wrap(err, "querying completed goals")
	}

	st := Stats{
		Sessions:       len(sessions),
		TotalMinutes:   studysession.TotalMinutes(sessions),
		LongestStreak:  studysession.LongestStreak(sessions),
		CompletedGoals: len(completed),
	}
	for _, sess := range sessions {
		if isNightSession(sess) {
			st.NightSession = true
			break
		}
	}

	now := time.Now().UTC()
	var unlocked []string
	for _, code := range Earned(st) {
		def, _ := Lookup(code)
		ok, err := svc.repo.UnlockAchievement(ctx, Achievement{
			ID:          uuid.NewString(),
			UserID:      userID,
			Code:        code,
			Title:       def.Title,
			Description: def.Description,
			UnlockedAt:  now,
		})
		if err != nil {
			return unlocked, errors.Wrapf(err, "unlocking %s", code)
		}
		if ok {
			unlocked = append(unlocked, code)
		}
	}
	return unlocked, nil
}

// SessionLogged re-evaluates the achievements of the owner of `sess`.
// It must be notified after the goal service so completed goals are seen.
func (svc *Service) SessionLogged(ctx context.Context, sess studysession.StudySession) error {
	_, err := svc.Evaluate(ctx, sess.UserID)
	return err
}

func (svc *Service) Query(ctx context.Context, userID string) ([]Achievement, error) {
	return svc.repo.QueryAchievements(ctx, userID)
}

// Statuses returns the whole catalogue annotated with what `userID` has unlocked.
func (svc *Service) Statuses(ctx context.Context, userID string) ([]Status, error) {
	achievements, err := svc.repo.QueryAchievements(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying achievements")
	}
	unlocked := make(map[string]time.Time, len(achievements))
	for _, a := range achievements {
		unlocked[a.Code] = a.UnlockedAt
	}

	statuses := make([]Status, 0, len(Catalogue))
	for _, def := range Catalogue {
		st := Status{Definition: def}
		if at, ok := unlocked[def.Code]; ok {
			at := at
			st.Unlocked = true
			st.UnlockedAt = &at
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (svc *Service) EraseUser(ctx context.Context, userID string) error {
	return svc.repo.EraseUser(ctx, userID)
}
