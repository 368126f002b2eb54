package studysession_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core/studysession"
	inmemdb "github.com/trezcool/studypal/storage/database/inmem"
	"github.com/trezcool/studypal/tests"
)

type loggedRecorder struct {
	logged []string
}

func (r *loggedRecorder) SessionLogged(_ context.Context, sess studysession.StudySession) error {
	r.logged = append(r.logged, sess.ID)
	return nil
}

type changeRecorder struct {
	loggedRecorder
	updated [][2]int
	deleted []string
	err     error
}

func (r *changeRecorder) SessionUpdated(_ context.Context, before, after studysession.StudySession) error {
	r.updated = append(r.updated, [2]int{before.DurationMinutes, after.DurationMinutes})
	return r.err
}

func (r *changeRecorder) SessionDeleted(_ context.Context, sess studysession.StudySession) error {
	r.deleted = append(r.deleted, sess.ID)
	return r.err
}

func TestService_observers(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewLogger()
	logged, changes := &loggedRecorder{}, &changeRecorder{}
	svc := studysession.NewService(inmemdb.NewSessionRepository(inmemdb.Open()), logger, logged)
	svc.Observe(changes)

	userID := uuid.NewString()
	started := time.Now().Add(-time.Hour)
	sess, err := svc.Create(ctx, userID, studysession.SessionData{StartedAt: started, DurationMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{sess.ID}, logged.logged)
	assert.Equal(t, []string{sess.ID}, changes.logged)

	t.Run("update", func(t *testing.T) {
		_, err := svc.Update(ctx, userID, sess.ID, studysession.SessionData{StartedAt: started, DurationMinutes: 45})
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{30, 45}}, changes.updated)
	})

	t.Run("not owned", func(t *testing.T) {
		err := svc.Delete(ctx, uuid.NewString(), sess.ID)
		assert.Equal(t, studysession.ErrNotFound, err)
		assert.Empty(t, changes.deleted)
	})

	t.Run("observer failures do not fail the delete", func(t *testing.T) {
		changes.err = errors.New("boom")
		require.NoError(t, svc.Delete(ctx, userID, sess.ID))
		assert.Equal(t, []string{sess.ID}, changes.deleted)
		assert.Len(t, logger.Messages("error"), 1)
	})
}
