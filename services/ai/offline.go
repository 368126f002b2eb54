package aisvc

import (
	"context"
	"strings"

	"github.com/trezcool/studypal/core/ai"
)

// Offline answers without any remote model. Used in debug, tests, or when Gemini is not configured.
type Offline struct{}

var _ ai.Assistant = Offline{}

func (Offline) Chat(_ context.Context, req ai.ChatRequest) (ai.ChatReply, error) {
	msg := strings.ToLower(req.Message)
	var tip string
	switch {
	case strings.Contains(msg, "focus") || strings.Contains(msg, "distract"):
		tip = "Try 25 minute focus blocks with 5 minute breaks, and keep your phone out of reach."
	case strings.Contains(msg, "exam") || strings.Contains(msg, "test"):
		tip = "Test yourself with past questions and space your revision over several days."
	case strings.Contains(msg, "motivat"):
		tip = "Set a small goal for today and log the session once you are done."
	default:
		tip = "Break the topic into small parts and explain each one in your own words."
	}
	return ai.ChatReply{Reply: "The AI assistant is offline. " + tip}, nil
}

func (Offline) StudyPlan(_ context.Context, req ai.PlanRequest) (ai.Plan, error) {
	return ai.DefaultPlan(req), nil
}
