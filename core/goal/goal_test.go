package goal_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
	inmemdb "github.com/trezcool/studypal/storage/database/inmem"
)

func TestGoal_Progress(t *testing.T) {
	tests := []struct {
		target, progress, want int
	}{
		{0, 10, 0},
		{120, 0, 0},
		{120, 30, 25},
		{120, 119, 99},
		{120, 120, 100},
		{120, 500, 100},
	}
	for _, tt := range tests {
		g := goal.Goal{TargetMinutes: tt.target, ProgressMinutes: tt.progress}
		if got := g.Progress(); got != tt.want {
			t.Errorf("Progress(%d/%d) = %d; want %d", tt.progress, tt.target, got, tt.want)
		}
	}
}

func TestGoal_Counts(t *testing.T) {
	anySubject := goal.Goal{}
	maths := goal.Goal{SubjectID: "maths"}

	assert.True(t, anySubject.Counts(""))
	assert.True(t, anySubject.Counts("physics"))
	assert.True(t, maths.Counts("maths"))
	assert.False(t, maths.Counts("physics"))
	assert.False(t, maths.Counts(""))
}

func newService() *goal.Service {
	return goal.NewService(inmemdb.NewGoalRepository(inmemdb.Open()))
}

func TestService_SessionLogged(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	userID, mathsID := uuid.NewString(), uuid.NewString()

	overall, err := svc.Create(ctx, userID, goal.GoalData{Title: "Study", TargetMinutes: 60})
	require.NoError(t, err)
	maths, err := svc.Create(ctx, userID, goal.GoalData{Title: "Maths", SubjectID: mathsID, TargetMinutes: 40})
	require.NoError(t, err)
	others, err := svc.Create(ctx, uuid.NewString(), goal.GoalData{Title: "Not mine", TargetMinutes: 10})
	require.NoError(t, err)

	log := func(subjectID string, minutes int) {
		t.Helper()
		require.NoError(t, svc.SessionLogged(ctx, studysession.StudySession{
			UserID:          userID,
			SubjectID:       subjectID,
			DurationMinutes: minutes,
		}))
	}
	get := func(g goal.Goal) goal.Goal {
		t.Helper()
		got, err := svc.Get(ctx, g.UserID, g.ID)
		require.NoError(t, err)
		return got
	}

	log("", 20)
	assert.Equal(t, 20, get(overall).ProgressMinutes)
	assert.Equal(t, 0, get(maths).ProgressMinutes)

	log(mathsID, 30)
	assert.Equal(t, 50, get(overall).ProgressMinutes)
	assert.Equal(t, 30, get(maths).ProgressMinutes)
	assert.Equal(t, goal.StatusActive, get(maths).Status)

	log(mathsID, 15)
	g := get(overall)
	assert.Equal(t, goal.StatusCompleted, g.Status)
	assert.Equal(t, 65, g.ProgressMinutes)
	assert.NotNil(t, g.CompletedAt)
	assert.Equal(t, goal.StatusCompleted, get(maths).Status)

	// completed goals stop accruing
	log("", 100)
	assert.Equal(t, 65, get(overall).ProgressMinutes)
	assert.Equal(t, 45, get(maths).ProgressMinutes)

	assert.Equal(t, 0, get(others).ProgressMinutes)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	userID := uuid.NewString()

	g, err := svc.Create(ctx, userID, goal.GoalData{Title: "Study", TargetMinutes: 100})
	require.NoError(t, err)
	require.NoError(t, svc.SessionLogged(ctx, studysession.StudySession{UserID: userID, DurationMinutes: 50}))

	t.Run("lowering the target completes the goal", func(t *testing.T) {
		got, err := svc.Update(ctx, userID, g.ID, goal.GoalData{Title: "Study", TargetMinutes: 50})
		require.NoError(t, err)
		assert.Equal(t, goal.StatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("raising the target reopens the goal", func(t *testing.T) {
		got, err := svc.Update(ctx, userID, g.ID, goal.GoalData{Title: "Study", TargetMinutes: 80})
		require.NoError(t, err)
		assert.Equal(t, goal.StatusActive, got.Status)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("reopening", func(t *testing.T) {
		got, err := svc.Update(ctx, userID, g.ID, goal.GoalData{Title: "Study more", TargetMinutes: 200, Status: goal.StatusActive})
		require.NoError(t, err)
		assert.Equal(t, goal.StatusActive, got.Status)
		assert.Nil(t, got.CompletedAt)
		assert.Equal(t, "Study more", got.Title)
		assert.Equal(t, 50, got.ProgressMinutes)
	})

	t.Run("not owned", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.NewString(), g.ID, goal.GoalData{Title: "Mine", TargetMinutes: 10})
		assert.Equal(t, goal.ErrNotFound, err)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := svc.Get(ctx, userID, "lol")
		assert.Equal(t, goal.ErrNotFound, err)
	})
}

func TestService_sessionChanges(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	userID, mathsID, physicsID := uuid.NewString(), uuid.NewString(), uuid.NewString()

	overall, err := svc.Create(ctx, userID, goal.GoalData{Title: "Study", TargetMinutes: 60})
	require.NoError(t, err)
	maths, err := svc.Create(ctx, userID, goal.GoalData{Title: "Maths", SubjectID: mathsID, TargetMinutes: 100})
	require.NoError(t, err)
	manual, err := svc.Create(ctx, userID, goal.GoalData{Title: "Read", TargetMinutes: 500})
	require.NoError(t, err)

	get := func(g goal.Goal) goal.Goal {
		t.Helper()
		got, err := svc.Get(ctx, g.UserID, g.ID)
		require.NoError(t, err)
		return got
	}

	sess := studysession.StudySession{
		ID:              uuid.NewString(),
		UserID:          userID,
		SubjectID:       mathsID,
		DurationMinutes: 70,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, svc.SessionLogged(ctx, sess))
	_, err = svc.Update(ctx, userID, manual.ID, goal.GoalData{Title: "Read", TargetMinutes: 500, Status: goal.StatusCompleted})
	require.NoError(t, err)

	require.Equal(t, goal.StatusCompleted, get(overall).Status)
	require.Equal(t, 70, get(maths).ProgressMinutes)
	require.Equal(t, 70, get(manual).ProgressMinutes)

	t.Run("update moves the minutes", func(t *testing.T) {
		after := sess
		after.SubjectID = physicsID
		after.DurationMinutes = 40
		require.NoError(t, svc.SessionUpdated(ctx, sess, after))
		sess = after

		g := get(overall)
		assert.Equal(t, 40, g.ProgressMinutes)
		assert.Equal(t, goal.StatusActive, g.Status)
		assert.Nil(t, g.CompletedAt)
		assert.Equal(t, 0, get(maths).ProgressMinutes)
	})

	t.Run("sessions older than the goal are ignored", func(t *testing.T) {
		older := studysession.StudySession{
			ID:              uuid.NewString(),
			UserID:          userID,
			DurationMinutes: 30,
			CreatedAt:       overall.CreatedAt.Add(-time.Hour),
		}
		require.NoError(t, svc.SessionDeleted(ctx, older))
		assert.Equal(t, 40, get(overall).ProgressMinutes)
	})

	t.Run("delete takes the minutes back", func(t *testing.T) {
		require.NoError(t, svc.SessionDeleted(ctx, sess))
		assert.Equal(t, 0, get(overall).ProgressMinutes)
		assert.Equal(t, 0, get(maths).ProgressMinutes)

		g := get(manual)
		assert.Equal(t, 0, g.ProgressMinutes)
		assert.Equal(t, goal.StatusCompleted, g.Status, "manually completed goals stay completed")
	})
}

func TestService_MarkMissed(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	userID := uuid.NewString()
	past, future := time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour)

	late, err := svc.Create(ctx, userID, goal.GoalData{Title: "Late", TargetMinutes: 60, Deadline: &past})
	require.NoError(t, err)
	onTime, err := svc.Create(ctx, userID, goal.GoalData{Title: "On time", TargetMinutes: 60, Deadline: &future})
	require.NoError(t, err)
	open, err := svc.Create(ctx, userID, goal.GoalData{Title: "Open", TargetMinutes: 60})
	require.NoError(t, err)
	done, err := svc.Create(ctx, userID, goal.GoalData{Title: "Done", TargetMinutes: 60, Deadline: &past})
	require.NoError(t, err)
	_, err = svc.Update(ctx, userID, done.ID, goal.GoalData{Title: "Done", TargetMinutes: 60, Deadline: &past, Status: goal.StatusCompleted})
	require.NoError(t, err)

	n, err := svc.MarkMissed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := map[string]string{
		late.ID:   goal.StatusMissed,
		onTime.ID: goal.StatusActive,
		open.ID:   goal.StatusActive,
		done.ID:   goal.StatusCompleted,
	}
	for id, status := range want {
		g, err := svc.Get(ctx, userID, id)
		require.NoError(t, err)
		assert.Equal(t, status, g.Status, g.Title)
	}

	// idempotent
	n, err = svc.MarkMissed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
