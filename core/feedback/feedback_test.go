package feedback_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/feedback"
	emailsvc "github.com/trezcool/studypal/services/email"
	inmemdb "github.com/trezcool/studypal/storage/database/inmem"
	"github.com/trezcool/studypal/tests"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		typ    string
		rating int
		length int
		want   string
	}{
		{feedback.TypeBug, 1, 10, feedback.PriorityHigh},
		{feedback.TypeBug, 2, 10, feedback.PriorityHigh},
		{feedback.TypeBug, 3, 10, feedback.PriorityMedium},
		{feedback.TypeBug, 5, 500, feedback.PriorityMedium},
		{feedback.TypeGeneral, 1, 99, feedback.PriorityMedium},
		{feedback.TypeGeneral, 1, 100, feedback.PriorityHigh},
		{feedback.TypeOther, 3, 10, feedback.PriorityMedium},
		{feedback.TypeOther, 4, 10, feedback.PriorityLow},
		{feedback.TypeFeature, 5, 199, feedback.PriorityLow},
		{feedback.TypeFeature, 5, 200, feedback.PriorityMedium},
		{feedback.TypeGeneral, 5, 1000, feedback.PriorityLow},
	}
	for _, tt := range tests {
		if got := feedback.Priority(tt.typ, tt.rating, tt.length); got != tt.want {
			t.Errorf("Priority(%s, %d, %d) = %s; want %s", tt.typ, tt.rating, tt.length, got, tt.want)
		}
	}
}

func TestNewFeedback_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	nf := feedback.NewFeedback{
		Type:    "  BUG ",
		Rating:  2,
		Content: "<script>alert(1)</script>It <b>crashes</b> when I save.",
		Page:    "/sessions",
	}
	require.NoError(t, nf.Validate(validate))
	assert.Equal(t, feedback.TypeBug, nf.Type)
	assert.Equal(t, "It crashes when I save.", nf.Content)

	nf = feedback.NewFeedback{Type: "general", Rating: 3, Content: "Tom & Jerry's <i>fan</i>"}
	require.NoError(t, nf.Validate(validate))
	assert.Equal(t, "Tom & Jerry's fan", nf.Content)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, testutil.NewLogger())
	emailsvc.ClearSentMessages()

	repo := inmemdb.NewFeedbackRepository(inmemdb.Open())
	svc := feedback.NewService(repo, emailsvc.NewConsoleServiceMock(conf), []string{"a@test.io", "b@test.io"})
	userID := uuid.NewString()

	long := strings.Repeat("é", 100) // counted in characters, not bytes
	fb, err := svc.Create(ctx, userID, "user@test.cd", feedback.NewFeedback{Type: feedback.TypeGeneral, Rating: 1, Content: long})
	require.NoError(t, err)
	assert.Equal(t, feedback.PriorityHigh, fb.Priority)
	assert.Equal(t, feedback.StatusOpen, fb.Status)

	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].To, 2)
	assert.Equal(t, "New HIGH priority feedback (general)", msgs[0].Subject)
	assert.Contains(t, msgs[0].TextContent, "user@test.cd")
	assert.Equal(t, []string{"feedback", "priority:high"}, msgs[0].Categories)

	short := strings.Repeat("é", 99)
	_, err = svc.Create(ctx, "", "anon@test.cd", feedback.NewFeedback{Type: feedback.TypeGeneral, Rating: 1, Content: short})
	require.NoError(t, err)

	sum, err := svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, feedback.Summary{High: 1, Medium: 1, Open: 2}, sum)

	t.Run("set status", func(t *testing.T) {
		got, err := svc.SetStatus(ctx, strings.ToUpper(fb.ID), feedback.UpdateStatus{Status: feedback.StatusClosed})
		require.NoError(t, err)
		assert.Equal(t, feedback.StatusClosed, got.Status)

		_, err = svc.SetStatus(ctx, "lol", feedback.UpdateStatus{Status: feedback.StatusClosed})
		assert.Equal(t, feedback.ErrNotFound, err)

		fbs, err := svc.Query(ctx, feedback.QueryFilter{Status: " CLOSED"})
		require.NoError(t, err)
		require.Len(t, fbs, 1)
		assert.Equal(t, fb.ID, fbs[0].ID)
	})

	t.Run("detach user", func(t *testing.T) {
		require.NoError(t, svc.DetachUser(ctx, userID))
		mine, err := svc.QueryByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, mine)

		all, err := svc.Query(ctx, feedback.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestService_noFounders(t *testing.T) {
	conf := core.NewTestConfig()
	emailsvc.ClearSentMessages()

	svc := feedback.NewService(inmemdb.NewFeedbackRepository(inmemdb.Open()), emailsvc.NewConsoleServiceMock(conf), nil)
	_, err := svc.Create(context.Background(), "", "x@test.cd", feedback.NewFeedback{Type: feedback.TypeOther, Rating: 4, Content: "Works well enough."})
	require.NoError(t, err)
	assert.Empty(t, emailsvc.SentMessages())
}
