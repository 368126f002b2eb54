package inmemdb

import (
	"context"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/studysession"
)

type sessionRepository struct {
	db *DB
}

var _ studysession.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess studysession.StudySession) (studysession.StudySession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	sess.Tags = copyTags(sess.Tags)
	repo.db.sessions[sess.ID] = sess
	return sess, nil
}

func (repo *sessionRepository) GetSession(_ context.Context, userID, id string) (studysession.StudySession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if sess, ok := repo.db.sessions[id]; ok && sess.UserID == userID {
		sess.Tags = copyTags(sess.Tags)
		return sess, nil
	}
	return studysession.StudySession{}, studysession.ErrNotFound
}

func (repo *sessionRepository) QuerySessions(
	_ context.Context,
	userID string,
	filter studysession.QueryFilter,
	ordering ...core.DBOrdering,
) ([]studysession.StudySession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]studysession.StudySession, 0)
	for _, sess := range repo.db.sessions {
		switch {
		case sess.UserID != userID,
			filter.SubjectID != "" && sess.SubjectID != filter.SubjectID,
			!filter.From.IsZero() && sess.StartedAt.Before(filter.From),
			!filter.To.IsZero() && sess.StartedAt.After(filter.To):
			continue
		}
		sess.Tags = copyTags(sess.Tags)
		sessions = append(sessions, sess)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{studysession.DefaultOrdering}
	}
	sortBy(sessions, ordering, func(field string, a, b studysession.StudySession) int {
		switch field {
		case "duration_minutes":
			return cmpInt(a.DurationMinutes, b.DurationMinutes)
		case "focus_rating":
			return cmpInt(a.FocusRating, b.FocusRating)
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		default:
			return cmpTime(a.StartedAt, b.StartedAt)
		}
	})
	return sessions, nil
}

func (repo *sessionRepository) UpdateSession(_ context.Context, sess studysession.StudySession) (studysession.StudySession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig, ok := repo.db.sessions[sess.ID]; !ok || orig.UserID != sess.UserID {
		return studysession.StudySession{}, studysession.ErrNotFound
	}
	sess.Tags = copyTags(sess.Tags)
	repo.db.sessions[sess.ID] = sess
	return sess, nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, userID, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if sess, ok := repo.db.sessions[id]; !ok || sess.UserID != userID {
		return studysession.ErrNotFound
	}
	delete(repo.db.sessions, id)
	return nil
}

func (repo *sessionRepository) Totals(_ context.Context) (count int, minutes int, err error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, sess := range repo.db.sessions {
		count++
		minutes += sess.DurationMinutes
	}
	return count, minutes, nil
}

func (repo *sessionRepository) EraseUser(_ context.Context, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for k, sess := range repo.db.sessions {
		if sess.UserID == userID {
			delete(repo.db.sessions, k)
		}
	}
	return nil
}
