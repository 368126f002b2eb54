// Package ai is the facade to the study assistant. Callers only see Assistant.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/subject"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrUnavailable = errors.New("ai service unavailable")

type (
	Message struct {
		Role    string `json:"role" validate:"required,oneof=user assistant"`
		Content string `json:"content" validate:"required,max=4000"`
	}

	ChatRequest struct {
		Message string    `json:"message" validate:"required,max=4000"`
		History []Message `json:"history" validate:"max=20,dive"`
	}

	ChatReply struct {
		Reply string `json:"reply"`
	}

	// PlanInput is what a User asks for; subjects are referenced by id.
	PlanInput struct {
		SubjectIDs   []string `json:"subject_ids" validate:"required,min=1,max=10,dive,uuid"`
		HoursPerWeek int      `json:"hours_per_week" validate:"required,min=1,max=80"`
		Goal         string   `json:"goal" validate:"max=500"`
	}

	// PlanRequest is what the Assistant gets; subjects are resolved to names.
	PlanRequest struct {
		Subjects     []string
		HoursPerWeek int
		Goal         string
	}

	PlannedSession struct {
		Day     string `json:"day"`
		Subject string `json:"subject"`
		Minutes int    `json:"minutes"`
		Focus   string `json:"focus"`
	}

	Plan struct {
		Summary  string           `json:"summary"`
		Sessions []PlannedSession `json:"sessions"`
	}

	Assistant interface {
		Chat(ctx context.Context, req ChatRequest) (ChatReply, error)
		StudyPlan(ctx context.Context, req PlanRequest) (Plan, error)
	}
)

func (cr *ChatRequest) Validate(validate *validator.Validate) error {
	cr.Message = core.CleanString(cr.Message)
	for i := range cr.History {
		cr.History[i].Role = core.CleanString(cr.History[i].Role, true /* lower */)
		cr.History[i].Content = core.CleanString(cr.History[i].Content)
	}
	return validate.Struct(cr)
}

func (pi *PlanInput) Validate(validate *validator.Validate) error {
	for i, id := range pi.SubjectIDs {
		pi.SubjectIDs[i] = core.CleanString(id, true /* lower */)
	}
	pi.Goal = core.Sanitize(pi.Goal)
	return validate.Struct(pi)
}

// Weekdays a plan is spread over.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DefaultPlan spreads the weekly hours evenly over the weekdays, rotating through the subjects.
func DefaultPlan(req PlanRequest) Plan {
	plan := Plan{Sessions: []PlannedSession{}}
	if len(req.Subjects) == 0 || req.HoursPerWeek <= 0 {
		plan.Summary = "Nothing to plan."
		return plan
	}

	total := req.HoursPerWeek * 60
	days := len(Weekdays)
	if total < days*30 { // at least 30 minute sessions
		days = (total + 29) / 30
	}
	perDay, rest := total/days, total%days

	for i := 0; i < days; i++ {
		minutes := perDay
		if i < rest {
			minutes++
		}
		sub := req.Subjects[i%len(req.Subjects)]
		plan.Sessions = append(plan.Sessions, PlannedSession{
			Day:     Weekdays[i],
			Subject: sub,
			Minutes: minutes,
			Focus:   "Review and practice " + sub,
		})
	}

	plan.Summary = fmt.Sprintf("%d hours per week over %d days covering %s.", req.HoursPerWeek, days, strings.Join(req.Subjects, ", "))
	if req.Goal != "" {
		plan.Summary += " Goal: " + req.Goal
	}
	return plan
}

type (
	SubjectLister interface {
		QueryFollowed(ctx context.Context, userID string) ([]subject.UserSubject, error)
	}

	Service struct {
		assistant Assistant
		subjects  SubjectLister
	}
)

func NewService(assistant Assistant, subjects SubjectLister) *Service {
	return &Service{assistant: assistant, subjects: subjects}
}

// Chat forwards `req` to the Assistant. Assistant failures are reported as ErrUnavailable.
func (svc *Service) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	reply, err := svc.assistant.Chat(ctx, req)
	if err != nil {
		return ChatReply{}, errors.WithMessage(ErrUnavailable, err.Error())
	}
	return reply, nil
}

// StudyPlan builds a plan for the subjects `userID` follows. Unknown subjects are a validation error.
func (svc *Service) StudyPlan(ctx context.Context, userID string, in PlanInput) (Plan, error) {
	followed, err := svc.subjects.QueryFollowed(ctx, userID)
	if err != nil {
		return Plan{}, errors.Wrap(err, "querying followed subjects")
	}
	names := make(map[string]string, len(followed))
	for _, us := range followed {
		names[us.SubjectID] = us.Name
	}

	req := PlanRequest{HoursPerWeek: in.HoursPerWeek, Goal: in.Goal}
	for _, id := range in.SubjectIDs {
		name, ok := names[id]
		if !ok {
			return Plan{}, core.NewValidationError(nil, core.FieldError{Field: "subject_ids", Error: "unknown subject " + id})
		}
		if !core.StringInSlice(name, req.Subjects) {
			req.Subjects = append(req.Subjects, name)
		}
	}

	plan, err := svc.assistant.StudyPlan(ctx, req)
	if err != nil {
		return Plan{}, errors.WithMessage(ErrUnavailable, err.Error())
	}
	if plan.Sessions == nil {
		plan.Sessions = []PlannedSession{}
	}
	return plan, nil
}
