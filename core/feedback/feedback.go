// Package feedback collects user feedback and routes it to the founders.
package feedback

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/studypal/core"
)

// Feedback types.
const (
	TypeBug     = "bug"
	TypeFeature = "feature"
	TypeGeneral = "general"
	TypeOther   = "other"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

var ErrNotFound = core.NewNotFoundError("feedback")

type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email"`
	Type      string    `json:"type"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	Page      string    `json:"page"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Priority triages feedback from its type, rating (1-5) and content length (in characters).
func Priority(typ string, rating, length int) string {
	switch {
	case (typ == TypeBug && rating <= 2) || (rating == 1 && length >= 100):
		return PriorityHigh
	case typ == TypeBug || rating <= 3 || (typ == TypeFeature && length >= 200):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type NewFeedback struct {
	Type    string `json:"type" validate:"required,oneof=bug feature general other"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"required,min=10,max=5000"`
	Page    string `json:"page" validate:"max=255"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Type = core.CleanString(nf.Type, true /* lower */)
	nf.Content = core.Sanitize(nf.Content)
	nf.Page = core.Sanitize(nf.Page)
	return validate.Struct(nf)
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	Status   string
	Priority string
	Type     string
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Priority = core.CleanString(qf.Priority, true /* lower */)
	qf.Type = core.CleanString(qf.Type, true /* lower */)
}

type (
	Repository interface {
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		GetFeedback(ctx context.Context, id string) (Feedback, error)
		// QueryFeedback lists feedback matching every non-empty field of `filter`, newest first.
		QueryFeedback(ctx context.Context, filter QueryFilter) ([]Feedback, error)
		QueryUserFeedback(ctx context.Context, userID string) ([]Feedback, error)
		UpdateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		// DetachUser keeps the feedback of `userID` but forgets who sent it.
		DetachUser(ctx context.Context, userID string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		founders []string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, founders []string) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, founders: founders}
}

// Create records feedback from the User (`userID`, `email`) and notifies the founders.
// Notification is fire-and-forget: sending failures are handled by the email service.
func (svc *Service) Create(ctx context.Context, userID, email string, nf NewFeedback) (Feedback, error) {
	now := time.Now().UTC()
	fb, err := svc.repo.CreateFeedback(ctx, Feedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Type:      nf.Type,
		Rating:    nf.Rating,
		Content:   nf.Content,
		Page:      nf.Page,
		Priority:  Priority(nf.Type, nf.Rating, utf8.RuneCountInString(nf.Content)),
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Feedback{}, err
	}
	svc.notifyFounders(fb)
	return fb, nil
}

func (svc *Service) notifyFounders(fb Feedback) {
	if len(svc.founders) == 0 {
		return
	}
	to := make([]mail.Address, 0, len(svc.founders))
	for _, addr := range svc.founders {
		to = append(to, mail.Address{Address: addr})
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "New " + strings.ToUpper(fb.Priority) + " priority feedback (" + fb.Type + ")",
		TemplateName: "feedback_received",
		Categories:   []string{"feedback", "priority:" + fb.Priority},
		TemplateData: map[string]interface{}{
			"Priority": fb.Priority,
			"Type":     fb.Type,
			"Rating":   fb.Rating,
			"Email":    fb.Email,
			"Content":  fb.Content,
			"Page":     fb.Page,
		},
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Feedback, error) {
	filter.Clean()
	return svc.repo.QueryFeedback(ctx, filter)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Feedback, error) {
	return svc.repo.QueryUserFeedback(ctx, userID)
}

// SetStatus updates the review status of the feedback `id`. `us` must have been validated.
func (svc *Service) SetStatus(ctx context.Context, id string, us UpdateStatus) (Feedback, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Feedback{}, ErrNotFound
	}
	fb, err := svc.repo.GetFeedback(ctx, strings.ToLower(id))
	if err != nil {
		return Feedback{}, err
	}
	fb.Status = us.Status
	fb.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFeedback(ctx, fb)
}

func (svc *Service) DetachUser(ctx context.Context, userID string) error {
	return svc.repo.DetachUser(ctx, userID)
}

// Summary counts feedback per priority and the feedback still open.
type Summary struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Open   int `json:"-"`
}

func (svc *Service) Summarize(ctx context.Context) (Summary, error) {
	all, err := svc.repo.QueryFeedback(ctx, QueryFilter{})
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, fb := range all {
		switch fb.Priority {
		case PriorityHigh:
			sum.High++
		case PriorityMedium:
			sum.Medium++
		default:
			sum.Low++
		}
		if fb.Status == StatusOpen {
			sum.Open++
		}
	}
	return sum, nil
}
