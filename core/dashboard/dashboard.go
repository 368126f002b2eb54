// Package dashboard aggregates the study activity of a user.
package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
)

const recentSessions = 5

type SubjectMinutes struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Minutes   int    `json:"minutes"`
}

type Dashboard struct {
	TotalMinutes         int                         `json:"total_minutes"`
	TotalFormatted       string                      `json:"total_formatted"`
	WeekMinutes          int                         `json:"week_minutes"` // last 7 days
	WeekFormatted        string                      `json:"week_formatted"`
	SessionCount         int                         `json:"session_count"`
	CurrentStreak        int                         `json:"current_streak"`
	Subjects             []SubjectMinutes            `json:"subjects"`
	ActiveGoals          int                         `json:"active_goals"`
	AchievementsUnlocked int                         `json:"achievements_unlocked"`
	RecentSessions       []studysession.StudySession `json:"recent_sessions"`
}

// Build computes a Dashboard from raw activity. `sessions` must be sorted newest first.
func Build(sessions []studysession.StudySession, subjectNames map[string]string, activeGoals, achievements int, now time.Time) Dashboard {
	dash := Dashboard{
		TotalMinutes:         studysession.TotalMinutes(sessions),
		WeekMinutes:          studysession.TotalMinutes(sessions, now.Add(-7*24*time.Hour)),
		SessionCount:         len(sessions),
		CurrentStreak:        studysession.CurrentStreak(sessions, now),
		ActiveGoals:          activeGoals,
		AchievementsUnlocked: achievements,
		Subjects:             []SubjectMinutes{},
		RecentSessions:       []studysession.StudySession{},
	}
	dash.TotalFormatted = studysession.FormatDuration(dash.TotalMinutes)
	dash.WeekFormatted = studysession.FormatDuration(dash.WeekMinutes)

	perSubject := make(map[string]int)
	for _, sess := range sessions {
		if sess.SubjectID != "" {
			perSubject[sess.SubjectID] += sess.DurationMinutes
		}
	}
	for id, minutes := range perSubject {
		dash.Subjects = append(dash.Subjects, SubjectMinutes{SubjectID: id, Name: subjectNames[id], Minutes: minutes})
	}
	sort.Slice(dash.Subjects, func(i, j int) bool {
		if dash.Subjects[i].Minutes != dash.Subjects[j].Minutes {
			return dash.Subjects[i].Minutes > dash.Subjects[j].Minutes
		}
		return dash.Subjects[i].Name < dash.Subjects[j].Name
	})

	if len(sessions) > recentSessions {
		sessions = sessions[:recentSessions]
	}
	dash.RecentSessions = append(dash.RecentSessions, sessions...)
	return dash
}

type (
	// Cache stores computed dashboards. Implementations must be safe for concurrent use.
	Cache interface {
		// Get decodes the value at `key` into `dst`; found is false on a miss.
		Get(ctx context.Context, key string, dst interface{}) (found bool, err error)
		Set(ctx context.Context, key string, value interface{}) error
		Delete(ctx context.Context, keys ...string) error
	}

	SessionQuerier interface {
		Query(ctx context.Context, userID string, filter studysession.QueryFilter, ordering []core.DBOrdering) ([]studysession.StudySession, error)
	}

	SubjectNamer interface {
		Names(ctx context.Context, ids ...string) (map[string]string, error)
	}

	GoalQuerier interface {
		Query(ctx context.Context, userID string, filter goal.QueryFilter) ([]goal.Goal, error)
	}

	AchievementQuerier interface {
		Query(ctx context.Context, userID string) ([]achievement.Achievement, error)
	}

	Service struct {
		sessions     SessionQuerier
		subjects     SubjectNamer
		goals        GoalQuerier
		achievements AchievementQuerier
		cache        Cache
		logger       core.Logger
	}
)

var _ studysession.ChangeObserver = (*Service)(nil)

func NewService(
	sessions SessionQuerier,
	subjects SubjectNamer,
	goals GoalQuerier,
	achievements AchievementQuerier,
	cache Cache,
	logger core.Logger,
) *Service {
	return &Service{
		sessions:     sessions,
		subjects:     subjects,
		goals:        goals,
		achievements: achievements,
		cache:        cache,
		logger:       logger,
	}
}

func cacheKey(userID string) string { return "dashboard:" + userID }

// Get returns the Dashboard of `userID`, from the cache when possible.
// Cache failures are logged and the dashboard is computed afresh.
func (svc *Service) Get(ctx context.Context, userID string) (Dashboard, error) {
	var dash Dashboard
	found, err := svc.cache.Get(ctx, cacheKey(userID), &dash)
	if err != nil {
		svc.logger.Warn("reading cached dashboard", err)
	} else if found {
		return dash, nil
	}

	if dash, err = svc.compute(ctx, userID); err != nil {
		return Dashboard{}, err
	}
	if err := svc.cache.Set(ctx, cacheKey(userID), dash); err != nil {
		svc.logger.Warn("caching dashboard", err)
	}
	return dash, nil
}

func (svc *Service) compute(ctx context.Context, userID string) (Dashboard, error) {
	sessions, err := svc.sessions.Query(ctx, userID, studysession.QueryFilter{}, nil)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying sessions")
	}
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		if sess.SubjectID != "" && !core.StringInSlice(sess.SubjectID, ids) {
			ids = append(ids, sess.SubjectID)
		}
	}
	names, err := svc.subjects.Names(ctx, ids...)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "naming subjects")
	}
	goals, err := svc.goals.Query(ctx, userID, goal.QueryFilter{Status: goal.StatusActive})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying goals")
	}
	achievements, err := svc.achievements.Query(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying achievements")
	}
	return Build(sessions, names, len(goals), len(achievements), time.Now().UTC()), nil
}

// Invalidate drops the cached Dashboard of `userID`.
func (svc *Service) Invalidate(ctx context.Context, userID string) {
	if err := svc.cache.Delete(ctx, cacheKey(userID)); err != nil {
		svc.logger.Warn("invalidating cached dashboard", err, map[string]interface{}{"user_id": userID})
	}
}

func (svc *Service) SessionLogged(ctx context.Context, sess studysession.StudySession) error {
	svc.Invalidate(ctx, sess.UserID)
	return nil
}

func (svc *Service) SessionUpdated(ctx context.Context, _, after studysession.StudySession) error {
	svc.Invalidate(ctx, after.UserID)
	return nil
}

func (svc *Service) SessionDeleted(ctx context.Context, sess studysession.StudySession) error {
	svc.Invalidate(ctx, sess.UserID)
	return nil
}
