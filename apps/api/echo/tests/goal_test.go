package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/tests"
)

func Test_goalApi(t *testing.T) {
	app := setup(t)

	hero := app.createUser(t, "Hero", "hero", "hero@test.cd")
	other := app.createUser(t, "Other", "other", "other@test.cd")
	token, otherToken := app.getToken(t, hero), app.getToken(t, other)
	maths := testutil.CreateSubject(t, app.subjectRepo, "Maths")

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": reqMsg, "target_minutes": reqMsg}),
		},
		{
			name: "invalid target", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, goal.GoalData{Title: "Study", TargetMinutes: -5}),
			wantData: marchallObj(t, map[string]string{"target_minutes": "target_minutes must be 1 or greater"}),
		},
		{
			name: "invalid status", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, goal.GoalData{Title: "Study", TargetMinutes: 60, Status: "done"}),
			wantData: marchallObj(t, map[string]string{"status": "status must be one of [active completed missed]"}),
		},
		{
			name: "unknown subject", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, goal.GoalData{Title: "Study", TargetMinutes: 60, SubjectID: uuid.NewString()}),
			wantData: marchallObj(t, map[string]string{"subject_id": "unknown subject"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/goals", tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	deadline := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)
	var g goal.Goal

	t.Run("create", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/goals", token, marchallObj(t, goal.GoalData{
			Title: " <i>Maths</i> marathon ", SubjectID: maths.ID, TargetMinutes: 300, Deadline: &deadline,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &g)

		assert.NotEmpty(t, g.ID)
		assert.Equal(t, hero.ID, g.UserID)
		assert.Equal(t, "Maths marathon", g.Title)
		assert.Equal(t, goal.StatusActive, g.Status)
		assert.Zero(t, g.ProgressMinutes)
		require.NotNil(t, g.Deadline)
		assert.True(t, deadline.Equal(*g.Deadline))
	})

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/goals", token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, g)}, rec)

		rec = app.do(http.MethodGet, "/api/goals?status=completed", token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

		rec = app.do(http.MethodGet, "/api/goals", otherToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("retrieve (not owned)", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/goals/"+g.ID, otherToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "goal not found"})}, rec)
	})

	t.Run("update (not owned)", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/api/goals/"+g.ID, otherToken, []byte(`{}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("complete manually, then reopen", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/api/goals/"+g.ID, token, marchallObj(t, goal.GoalData{
			Title: g.Title, TargetMinutes: g.TargetMinutes, Status: goal.StatusCompleted,
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated goal.Goal
		unmarshal(t, rec, &updated)
		assert.Equal(t, goal.StatusCompleted, updated.Status)
		assert.NotNil(t, updated.CompletedAt)
		assert.Nil(t, updated.Deadline)
		assert.Empty(t, updated.SubjectID)

		rec = app.do(http.MethodPut, "/api/goals/"+g.ID, token, marchallObj(t, goal.GoalData{
			Title: g.Title, TargetMinutes: g.TargetMinutes, Status: goal.StatusActive,
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &updated)
		assert.Equal(t, goal.StatusActive, updated.Status)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/goals/"+g.ID, otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodDelete, "/api/goals/"+g.ID, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(http.MethodGet, "/api/goals/"+g.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
