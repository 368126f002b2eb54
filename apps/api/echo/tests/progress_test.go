package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/dashboard"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/tests"
)

func Test_progressApi_achievements(t *testing.T) {
	app := setup(t)

	hero := app.createUser(t, "Hero", "hero", "hero@test.cd")
	token := app.getToken(t, hero)

	statuses := func(t *testing.T) map[string]achievement.Status {
		rec := app.do(http.MethodGet, "/api/achievements", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var list []achievement.Status
		unmarshal(t, rec, &list)
		require.Len(t, list, len(achievement.Catalogue))
		byCode := make(map[string]achievement.Status, len(list))
		for i, st := range list {
			assert.Equal(t, achievement.Catalogue[i].Code, st.Code, "catalogue order")
			byCode[st.Code] = st
		}
		return byCode
	}

	t.Run("Auth required", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/achievements", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("nothing unlocked yet", func(t *testing.T) {
		for code, st := range statuses(t) {
			assert.False(t, st.Unlocked, code)
			assert.Nil(t, st.UnlockedAt, code)
		}
	})

	t.Run("unlocked by logging sessions", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/goals", token, marchallObj(t, goal.GoalData{Title: "Warm up", TargetMinutes: 30}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		night := time.Now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour).Add(2 * time.Hour) // yesterday, 2am
		rec = app.do(http.MethodPost, "/api/study-sessions", token, marchallObj(t, studysession.SessionData{
			StartedAt: night, DurationMinutes: 45,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		byCode := statuses(t)
		for _, code := range []string{achievement.FirstSession, achievement.GoalGetter, achievement.NightOwl} {
			assert.True(t, byCode[code].Unlocked, code)
			assert.NotNil(t, byCode[code].UnlockedAt, code)
		}
		for _, code := range []string{achievement.TenHours, achievement.FiftyHours, achievement.WeekStreak} {
			assert.False(t, byCode[code].Unlocked, code)
		}
		assert.Equal(t, "First Steps", byCode[achievement.FirstSession].Title)
	})
}

func Test_progressApi_dashboard(t *testing.T) {
	app := setup(t)

	hero := app.createUser(t, "Hero", "hero", "hero@test.cd")
	other := app.createUser(t, "Other", "other", "other@test.cd")
	token := app.getToken(t, hero)
	maths := testutil.CreateSubject(t, app.subjectRepo, "Maths")
	physics := testutil.CreateSubject(t, app.subjectRepo, "Physics")

	t.Run("Auth required", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{
			"total_minutes": 0, "total_formatted": "0m", "week_minutes": 0, "week_formatted": "0m",
			"session_count": 0, "current_streak": 0, "subjects": [], "active_goals": 0,
			"achievements_unlocked": 0, "recent_sessions": []
		}`, rec.Body.String())
	})

	day := func(n int) time.Time {
		return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -n).Add(9 * time.Hour)
	}
	s1 := testutil.CreateSession(t, app.sessionRepo, hero.ID, maths.ID, day(1), 60)
	s2 := testutil.CreateSession(t, app.sessionRepo, hero.ID, physics.ID, day(2), 30)
	s3 := testutil.CreateSession(t, app.sessionRepo, hero.ID, maths.ID, day(10), 120)
	s4 := testutil.CreateSession(t, app.sessionRepo, hero.ID, "", day(1).Add(time.Hour), 15)
	testutil.CreateSession(t, app.sessionRepo, other.ID, maths.ID, day(1), 600)

	rec := app.do(http.MethodPost, "/api/goals", token, marchallObj(t, goal.GoalData{Title: "Study 10h", TargetMinutes: 600}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("aggregated", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var dash dashboard.Dashboard
		unmarshal(t, rec, &dash)
		assert.Equal(t, 225, dash.TotalMinutes)
		assert.Equal(t, "3h 45m", dash.TotalFormatted)
		assert.Equal(t, 105, dash.WeekMinutes)
		assert.Equal(t, "1h 45m", dash.WeekFormatted)
		assert.Equal(t, 4, dash.SessionCount)
		assert.Equal(t, 2, dash.CurrentStreak)
		assert.Equal(t, 1, dash.ActiveGoals)
		assert.Equal(t, 0, dash.AchievementsUnlocked)
		assert.Equal(t, []dashboard.SubjectMinutes{
			{SubjectID: maths.ID, Name: "Maths", Minutes: 180},
			{SubjectID: physics.ID, Name: "Physics", Minutes: 30},
		}, dash.Subjects)

		ids := make([]string, 0, len(dash.RecentSessions))
		for _, sess := range dash.RecentSessions {
			ids = append(ids, sess.ID)
		}
		assert.Equal(t, []string{s4.ID, s1.ID, s2.ID, s3.ID}, ids)
	})

	t.Run("logging a session is reflected", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/study-sessions", token, marchallObj(t, studysession.SessionData{
			SubjectID: physics.ID, StartedAt: time.Now().Add(-time.Minute), DurationMinutes: 20,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(http.MethodGet, "/api/dashboard", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var dash dashboard.Dashboard
		unmarshal(t, rec, &dash)
		assert.Equal(t, 245, dash.TotalMinutes)
		assert.Equal(t, 5, dash.SessionCount)
		assert.Equal(t, 3, dash.CurrentStreak)
		assert.GreaterOrEqual(t, dash.AchievementsUnlocked, 1) // at least first_session
	})
}
