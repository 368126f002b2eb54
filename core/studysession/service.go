// Package studysession records the study sessions logged by users.
package studysession

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
)

var ErrNotFound = core.NewNotFoundError("study session")

type (
	Repository interface {
		CreateSession(ctx context.Context, sess StudySession) (StudySession, error)
		// GetSession returns the session `id` only if it belongs to `userID`.
		GetSession(ctx context.Context, userID, id string) (StudySession, error)
		QuerySessions(ctx context.Context, userID string, filter QueryFilter, ordering ...core.DBOrdering) ([]StudySession, error)
		UpdateSession(ctx context.Context, sess StudySession) (StudySession, error)
		DeleteSession(ctx context.Context, userID, id string) error
		// Totals sums up the sessions of all users.
		Totals(ctx context.Context) (count int, minutes int, err error)
		// EraseUser deletes every session of `userID`.
		EraseUser(ctx context.Context, userID string) error
	}

	// Observer is notified after a new StudySession was logged.
	Observer interface {
		SessionLogged(ctx context.Context, sess StudySession) error
	}

	// ChangeObserver is an Observer also notified when a logged session is edited or removed.
	ChangeObserver interface {
		Observer
		SessionUpdated(ctx context.Context, before, after StudySession) error
		SessionDeleted(ctx context.Context, sess StudySession) error
	}

	Service struct {
		repo      Repository
		logger    core.Logger
		observers []Observer
	}
)

func NewService(repo Repository, logger core.Logger, observers ...Observer) *Service {
	return &Service{repo: repo, logger: logger, observers: observers}
}

// Observe registers more observers. It must be called before the service is used.
func (svc *Service) Observe(observers ...Observer) {
	svc.observers = append(svc.observers, observers...)
}

// Create logs a new StudySession for `userID`. `data` must have been validated.
// Observer failures are logged and do not fail the operation.
func (svc *Service) Create(ctx context.Context, userID string, data SessionData) (StudySession, error) {
	now := time.Now().UTC()
	sess := StudySession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(&sess, data)

	sess, err := svc.repo.CreateSession(ctx, sess)
	if err != nil {
		return StudySession{}, errors.Wrap(err, "creating study session")
	}

	for _, obs := range svc.observers {
		if err := obs.SessionLogged(ctx, sess); err != nil {
			svc.logger.Error("notifying study session observer", err, map[string]interface{}{"session_id": sess.ID})
		}
	}
	return sess, nil
}

func (svc *Service) Get(ctx context.Context, userID, id string) (StudySession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return StudySession{}, ErrNotFound
	}
	return svc.repo.GetSession(ctx, userID, strings.ToLower(id))
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter, ordering []core.DBOrdering) ([]StudySession, error) {
	filter.Clean()
	ordering = core.CleanOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{DefaultOrdering}
	}
	return svc.repo.QuerySessions(ctx, userID, filter, ordering...)
}

// Update replaces the editable fields of the session `id`. `data` must have been validated.
func (svc *Service) Update(ctx context.Context, userID, id string, data SessionData) (StudySession, error) {
	sess, err := svc.Get(ctx, userID, id)
	if err != nil {
		return StudySession{}, err
	}
	before := sess
	apply(&sess, data)
	sess.UpdatedAt = time.Now().UTC()
	if sess, err = svc.repo.UpdateSession(ctx, sess); err != nil {
		return StudySession{}, err
	}

	svc.notifyChange(sess.ID, func(obs ChangeObserver) error {
		return obs.SessionUpdated(ctx, before, sess)
	})
	return sess, nil
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	sess, err := svc.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteSession(ctx, userID, sess.ID); err != nil {
		return err
	}

	svc.notifyChange(sess.ID, func(obs ChangeObserver) error {
		return obs.SessionDeleted(ctx, sess)
	})
	return nil
}

func (svc *Service) notifyChange(sessionID string, notify func(obs ChangeObserver) error) {
	for _, obs := range svc.observers {
		cobs, ok := obs.(ChangeObserver)
		if !ok {
			continue
		}
		if err := notify(cobs); err != nil {
			svc.logger.Error("notifying study session observer", err, map[string]interface{}{"session_id": sessionID})
		}
	}
}

func (svc *Service) Totals(ctx context.Context) (count int, minutes int, err error) {
	return svc.repo.Totals(ctx)
}

func (svc *Service) EraseUser(ctx context.Context, userID string) error {
	return svc.repo.EraseUser(ctx, userID)
}

func apply(sess *StudySession, data SessionData) {
	sess.SubjectID = data.SubjectID
	sess.Title = data.Title
	sess.Notes = data.Notes
	sess.StartedAt = data.StartedAt
	sess.EndedAt = data.EndedAt
	sess.DurationMinutes = data.DurationMinutes
	sess.FocusRating = data.FocusRating
	sess.Tags = data.Tags
	if sess.Tags == nil {
		sess.Tags = []string{}
	}
}
