package studysession

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studypal/core"
)

const (
	MaxDurationMinutes = 24 * 60
	maxTags            = 10
)

type StudySession struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	SubjectID       string    `json:"subject_id,omitempty"`
	Title           string    `json:"title"`
	Notes           string    `json:"notes"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMinutes int       `json:"duration_minutes"`
	FocusRating     int       `json:"focus_rating"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Formatted returns the human readable duration of the session, eg. "1h 30m".
func (s StudySession) Formatted() string {
	return FormatDuration(s.DurationMinutes)
}

// SessionData is the payload used to log or edit a StudySession.
// The duration defaults to the length of [started_at, ended_at]; ended_at defaults to started_at + duration.
type SessionData struct {
	SubjectID       string    `json:"subject_id" validate:"omitempty,uuid"`
	Title           string    `json:"title" validate:"max=200"`
	Notes           string    `json:"notes" validate:"max=10000"`
	StartedAt       time.Time `json:"started_at" validate:"required"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=0"`
	FocusRating     int       `json:"focus_rating" validate:"min=0,max=5"`
	Tags            []string  `json:"tags" validate:"max=10,dive,max=30"`
}

func (sd *SessionData) Validate(validate *validator.Validate) error {
	sd.SubjectID = core.CleanString(sd.SubjectID, true /* lower */)
	sd.Title = core.Sanitize(sd.Title)
	sd.Notes = core.Sanitize(sd.Notes)

	tags := make([]string, 0, len(sd.Tags))
	for _, tag := range sd.Tags {
		if tag = core.Sanitize(core.CleanString(tag, true /* lower */)); tag != "" && !core.StringInSlice(tag, tags) {
			tags = append(tags, tag)
		}
	}
	sd.Tags = tags

	if err := validate.Struct(sd); err != nil {
		return err
	}

	sd.StartedAt = sd.StartedAt.UTC()
	if !sd.EndedAt.IsZero() {
		sd.EndedAt = sd.EndedAt.UTC()
	}
	return sd.resolveInterval(time.Now().UTC())
}

// resolveInterval fills in ended_at/duration_minutes from one another and checks they are coherent.
func (sd *SessionData) resolveInterval(now time.Time) error {
	fieldErr := func(field, msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
	}

	if sd.StartedAt.After(now.Add(5 * time.Minute)) {
		return fieldErr("started_at", "cannot be in the future")
	}

	switch {
	case sd.EndedAt.IsZero() && sd.DurationMinutes == 0:
		return fieldErr("duration_minutes", "one of ended_at or duration_minutes is required")
	case sd.EndedAt.IsZero():
		sd.EndedAt = sd.StartedAt.Add(time.Duration(sd.DurationMinutes) * time.Minute)
	default:
		if !sd.EndedAt.After(sd.StartedAt) {
			return fieldErr("ended_at", "must be after started_at")
		}
		interval := int(sd.EndedAt.Sub(sd.StartedAt).Round(time.Minute) / time.Minute)
		if sd.DurationMinutes == 0 {
			sd.DurationMinutes = interval
		} else if sd.DurationMinutes > interval {
			return fieldErr("duration_minutes", "cannot exceed the time between started_at and ended_at")
		}
	}

	if sd.DurationMinutes < 1 || sd.DurationMinutes > MaxDurationMinutes {
		return fieldErr("duration_minutes", "must be between 1 minute and 24 hours")
	}
	return nil
}

type QueryFilter struct {
	SubjectID string
	From      time.Time
	To        time.Time
}

func (qf *QueryFilter) Clean() {
	qf.SubjectID = core.CleanString(qf.SubjectID, true /* lower */)
}

// OrderingFields are the fields StudySessions can be ordered by.
var OrderingFields = []string{"started_at", "duration_minutes", "focus_rating", "created_at"}

// DefaultOrdering lists the most recent sessions first.
var DefaultOrdering = core.DBOrdering{Field: "started_at", Ascending: false}
