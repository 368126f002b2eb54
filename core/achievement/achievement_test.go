package achievement_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
	inmemdb "github.com/trezcool/studypal/storage/database/inmem"
)

func TestEarned(t *testing.T) {
	tests := []struct {
		name  string
		stats achievement.Stats
		want  []string
	}{
		{name: "nothing", want: []string{}},
		{name: "first session", stats: achievement.Stats{Sessions: 1, TotalMinutes: 30}, want: []string{achievement.FirstSession}},
		{
			name:  "ten hours",
			stats: achievement.Stats{Sessions: 12, TotalMinutes: 600, LongestStreak: 6},
			want:  []string{achievement.FirstSession, achievement.TenHours},
		},
		{
			name:  "everything",
			stats: achievement.Stats{Sessions: 100, TotalMinutes: 3000, LongestStreak: 7, CompletedGoals: 2, NightSession: true},
			want: []string{
				achievement.FirstSession, achievement.TenHours, achievement.FiftyHours,
				achievement.WeekStreak, achievement.GoalGetter, achievement.NightOwl,
			},
		},
		{name: "goal without sessions", stats: achievement.Stats{CompletedGoals: 1}, want: []string{achievement.GoalGetter}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, achievement.Earned(tt.stats))
		})
	}
}

func TestLookup(t *testing.T) {
	def, ok := achievement.Lookup(achievement.NightOwl)
	assert.True(t, ok)
	assert.Equal(t, "Night Owl", def.Title)

	_, ok = achievement.Lookup("lol")
	assert.False(t, ok)
}

type fakeSessions []studysession.StudySession

func (f fakeSessions) Query(context.Context, string, studysession.QueryFilter, []core.DBOrdering) ([]studysession.StudySession, error) {
	return f, nil
}

type fakeGoals []goal.Goal

func (f fakeGoals) Query(_ context.Context, _ string, filter goal.QueryFilter) ([]goal.Goal, error) {
	var goals []goal.Goal
	for _, g := range f {
		if filter.Status == "" || g.Status == filter.Status {
			goals = append(goals, g)
		}
	}
	return goals, nil
}

func TestService_Evaluate(t *testing.T) {
	ctx := context.Background()
	userID := "u1"
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	sessions := make(fakeSessions, 0, 7)
	for i := 0; i < 7; i++ {
		sessions = append(sessions, studysession.StudySession{
			UserID:          userID,
			StartedAt:       day.AddDate(0, 0, i).Add(18 * time.Hour),
			DurationMinutes: 90,
		})
	}
	goals := fakeGoals{{Status: goal.StatusActive}}

	repo := inmemdb.NewAchievementRepository(inmemdb.Open())
	svc := achievement.NewService(repo, sessions, goals)

	unlocked, err := svc.Evaluate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{achievement.FirstSession, achievement.TenHours, achievement.WeekStreak}, unlocked)

	// already unlocked ones are not reported again
	unlocked, err = svc.Evaluate(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	// a completed goal and a night session
	goals = append(goals, goal.Goal{Status: goal.StatusCompleted})
	sessions = append(sessions, studysession.StudySession{UserID: userID, StartedAt: day.Add(3 * time.Hour), DurationMinutes: 20})
	svc = achievement.NewService(repo, sessions, goals)
	require.NoError(t, svc.SessionLogged(ctx, sessions[len(sessions)-1]))

	statuses, err := svc.Statuses(ctx, userID)
	require.NoError(t, err)
	require.Len(t, statuses, len(achievement.Catalogue))
	got := make(map[string]bool, len(statuses))
	for i, st := range statuses {
		assert.Equal(t, achievement.Catalogue[i].Code, st.Code)
		assert.Equal(t, st.Unlocked, st.UnlockedAt != nil)
		got[st.Code] = st.Unlocked
	}
	assert.Equal(t, map[string]bool{
		achievement.FirstSession: true,
		achievement.TenHours:     true,
		achievement.FiftyHours:   false,
		achievement.WeekStreak:   true,
		achievement.GoalGetter:   true,
		achievement.NightOwl:     true,
	}, got)

	achievements, err := svc.Query(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, achievements, 5)

	require.NoError(t, svc.EraseUser(ctx, userID))
	achievements, err = svc.Query(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, achievements)
}
