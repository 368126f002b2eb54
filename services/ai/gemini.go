// Package aisvc implements ai.Assistant.
package aisvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/ai"
)

const (
	tutorPrompt = "You are StudyPal, a friendly and knowledgeable study partner. " +
		"Give short, accurate and encouraging answers that help the student learn. " +
		"Never invent facts; say so when you do not know."

	planPrompt = "You are StudyPal, a study planner. Build a weekly study plan for a student.\n" +
		"Subjects: %s\nHours per week: %d\nGoal: %s\n" +
		"Answer with JSON only, no prose nor code fences, following this structure: " +
		`{"summary": "...", "sessions": [{"day": "Monday", "subject": "...", "minutes": 60, "focus": "..."}]}` +
		"\nOnly use the given subjects and weekdays; the minutes must add up to the weekly hours."
)

// Gemini talks to Google's Gemini models.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ ai.Assistant = (*Gemini)(nil)

func NewGemini(ctx context.Context, conf *core.Config) (*Gemini, error) {
	if conf.GeminiApiKey == "" {
		return nil, errors.New("gemini API key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(conf.GeminiApiKey))
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	model := client.GenerativeModel(conf.GeminiModel)
	model.SetTemperature(0.4)
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Chat(ctx context.Context, req ai.ChatRequest) (ai.ChatReply, error) {
	cs := g.model.StartChat()
	cs.History = append(cs.History,
		&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(tutorPrompt)}},
		&genai.Content{Role: "model", Parts: []genai.Part{genai.Text("Understood. How can I help you study?")}},
	)
	for _, msg := range req.History {
		role := "user"
		if msg.Role == ai.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return ai.ChatReply{}, errors.Wrap(err, "sending chat message")
	}
	text := responseText(resp)
	if text == "" {
		return ai.ChatReply{}, errors.New("empty chat response")
	}
	return ai.ChatReply{Reply: text}, nil
}

func (g *Gemini) StudyPlan(ctx context.Context, req ai.PlanRequest) (ai.Plan, error) {
	goal := req.Goal
	if goal == "" {
		goal = "steady progress"
	}
	prompt := fmt.Sprintf(planPrompt, strings.Join(req.Subjects, ", "), req.HoursPerWeek, goal)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ai.Plan{}, errors.Wrap(err, "generating study plan")
	}
	return parsePlan(responseText(resp))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

// parsePlan decodes a JSON plan, tolerating markdown code fences around it.
func parsePlan(text string) (ai.Plan, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var plan ai.Plan
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &plan); err != nil {
		return ai.Plan{}, errors.Wrap(err, "decoding study plan")
	}
	if len(plan.Sessions) == 0 {
		return ai.Plan{}, errors.New("study plan has no sessions")
	}
	return plan, nil
}
