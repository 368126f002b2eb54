package aisvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studypal/core/ai"
)

func Test_parsePlan(t *testing.T) {
	want := ai.Plan{
		Summary:  "Two sessions",
		Sessions: []ai.PlannedSession{{Day: "Monday", Subject: "Maths", Minutes: 60, Focus: "Algebra"}},
	}
	raw := `{"summary": "Two sessions", "sessions": [{"day": "Monday", "subject": "Maths", "minutes": 60, "focus": "Algebra"}]}`

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "plain json", text: raw},
		{name: "fenced json", text: "```json\n" + raw + "\n```"},
		{name: "prose", text: "Here is your plan!", wantErr: true},
		{name: "no sessions", text: `{"summary": "nothing", "sessions": []}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlan(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestOffline(t *testing.T) {
	reply, err := Offline{}.Chat(context.Background(), ai.ChatRequest{Message: "How do I stay focused?"})
	assert.NoError(t, err)
	assert.Contains(t, reply.Reply, "focus blocks")

	plan, err := Offline{}.StudyPlan(context.Background(), ai.PlanRequest{Subjects: []string{"Maths"}, HoursPerWeek: 7})
	assert.NoError(t, err)
	assert.Len(t, plan.Sessions, 7)
}
