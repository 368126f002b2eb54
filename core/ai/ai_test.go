package ai_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/ai"
	"github.com/trezcool/studypal/core/subject"
)

func TestDefaultPlan(t *testing.T) {
	tests := []struct {
		name        string
		req         ai.PlanRequest
		wantMinutes []int
		wantSummary string
	}{
		{
			name:        "no subjects",
			req:         ai.PlanRequest{HoursPerWeek: 5},
			wantMinutes: []int{},
			wantSummary: "Nothing to plan.",
		},
		{
			name:        "one hour a day",
			req:         ai.PlanRequest{Subjects: []string{"Maths"}, HoursPerWeek: 7},
			wantMinutes: []int{60, 60, 60, 60, 60, 60, 60},
			wantSummary: "7 hours per week over 7 days covering Maths.",
		},
		{
			name:        "short week",
			req:         ai.PlanRequest{Subjects: []string{"Maths", "Physics"}, HoursPerWeek: 2},
			wantMinutes: []int{30, 30, 30, 30},
			wantSummary: "2 hours per week over 4 days covering Maths, Physics.",
		},
		{
			name:        "uneven split",
			req:         ai.PlanRequest{Subjects: []string{"Maths"}, HoursPerWeek: 10, Goal: "Pass the finals"},
			wantMinutes: []int{86, 86, 86, 86, 86, 85, 85},
			wantSummary: "10 hours per week over 7 days covering Maths. Goal: Pass the finals",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := ai.DefaultPlan(tt.req)
			assert.Equal(t, tt.wantSummary, plan.Summary)

			minutes := make([]int, 0, len(plan.Sessions))
			total := 0
			for i, s := range plan.Sessions {
				minutes = append(minutes, s.Minutes)
				total += s.Minutes
				assert.Equal(t, ai.Weekdays[i], s.Day)
				assert.Equal(t, tt.req.Subjects[i%len(tt.req.Subjects)], s.Subject)
			}
			assert.Equal(t, tt.wantMinutes, minutes)
			if len(tt.req.Subjects) > 0 {
				assert.Equal(t, tt.req.HoursPerWeek*60, total)
			}
		})
	}
}

type fakeAssistant struct {
	err     error
	lastReq ai.PlanRequest
}

func (a *fakeAssistant) Chat(_ context.Context, req ai.ChatRequest) (ai.ChatReply, error) {
	if a.err != nil {
		return ai.ChatReply{}, a.err
	}
	return ai.ChatReply{Reply: "echo: " + req.Message}, nil
}

func (a *fakeAssistant) StudyPlan(_ context.Context, req ai.PlanRequest) (ai.Plan, error) {
	a.lastReq = req
	if a.err != nil {
		return ai.Plan{}, a.err
	}
	return ai.Plan{Summary: "ok"}, nil
}

type followed []subject.UserSubject

func (f followed) QueryFollowed(context.Context, string) ([]subject.UserSubject, error) {
	return f, nil
}

const (
	mathsID   = "0b6d8f7e-3c51-4a53-9a0e-3f1d2f0c8a11"
	physicsID = "7e2c1b90-5f4d-4e2a-8c3b-6a9d0e1f2b33"
)

var subjects = followed{
	{SubjectID: mathsID, Name: "Maths"},
	{SubjectID: physicsID, Name: "Physics"},
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()

	reply, err := ai.NewService(&fakeAssistant{}, subjects).Chat(ctx, ai.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", reply.Reply)

	_, err = ai.NewService(&fakeAssistant{err: errors.New("quota exceeded")}, subjects).Chat(ctx, ai.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, ai.ErrUnavailable, errors.Cause(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestService_StudyPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves subject names", func(t *testing.T) {
		assistant := new(fakeAssistant)
		plan, err := ai.NewService(assistant, subjects).StudyPlan(ctx, "usr", ai.PlanInput{
			SubjectIDs:   []string{physicsID, mathsID, physicsID},
			HoursPerWeek: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Physics", "Maths"}, assistant.lastReq.Subjects)
		assert.Equal(t, 3, assistant.lastReq.HoursPerWeek)
		assert.Equal(t, []ai.PlannedSession{}, plan.Sessions)
	})

	t.Run("unknown subject", func(t *testing.T) {
		unknown := "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
		_, err := ai.NewService(new(fakeAssistant), subjects).StudyPlan(ctx, "usr", ai.PlanInput{
			SubjectIDs:   []string{mathsID, unknown},
			HoursPerWeek: 3,
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, []core.FieldError{{Field: "subject_ids", Error: "unknown subject " + unknown}}, vErr.Fields)
	})

	t.Run("assistant failure", func(t *testing.T) {
		_, err := ai.NewService(&fakeAssistant{err: errors.New("timeout")}, subjects).StudyPlan(ctx, "usr", ai.PlanInput{
			SubjectIDs:   []string{mathsID},
			HoursPerWeek: 3,
		})
		assert.Equal(t, ai.ErrUnavailable, errors.Cause(err))
	})
}
