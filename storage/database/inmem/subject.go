package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CreateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.subjects[sub.ID] = sub
	return sub, nil
}

func (repo *subjectRepository) GetSubject(_ context.Context, id string) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if sub, ok := repo.db.subjects[id]; ok {
		return sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) GetSubjectByName(_ context.Context, name string) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, sub := range repo.db.subjects {
		if strings.EqualFold(sub.Name, name) {
			return sub, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) QuerySubjects(_ context.Context) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subjects = append(subjects, sub)
	}
	sortBy(subjects, []core.DBOrdering{{Field: "name", Ascending: true}}, func(_ string, a, b subject.Subject) int {
		return cmpString(a.Name, b.Name)
	})
	return subjects, nil
}

// DeleteSubject unfollows the subject, drops the goals set for it and detaches the sessions logged for it.
func (repo *subjectRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	delete(repo.db.subjects, id)
	for k, us := range repo.db.userSubjects {
		if us.SubjectID == id {
			delete(repo.db.userSubjects, k)
		}
	}
	for k, sess := range repo.db.sessions {
		if sess.SubjectID == id {
			sess.SubjectID = ""
			repo.db.sessions[k] = sess
		}
	}
	for k, g := range repo.db.goals {
		if g.SubjectID == id {
			delete(repo.db.goals, k)
		}
	}
	return nil
}

func (repo *subjectRepository) UpsertUserSubject(_ context.Context, us subject.UserSubject) (subject.UserSubject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := compositeKey(us.UserID, us.SubjectID)
	if orig, ok := repo.db.userSubjects[key]; ok {
		us.CreatedAt = orig.CreatedAt
	}
	repo.db.userSubjects[key] = us
	return us, nil
}

func (repo *subjectRepository) QueryUserSubjects(_ context.Context, userID string) ([]subject.UserSubject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	followed := make([]subject.UserSubject, 0)
	for _, us := range repo.db.userSubjects {
		if us.UserID != userID {
			continue
		}
		if sub, ok := repo.db.subjects[us.SubjectID]; ok {
			us.Name, us.Color = sub.Name, sub.Color
		}
		followed = append(followed, us)
	}
	sortBy(followed, []core.DBOrdering{{Field: "name", Ascending: true}}, func(_ string, a, b subject.UserSubject) int {
		return cmpString(a.Name, b.Name)
	})
	return followed, nil
}

func (repo *subjectRepository) DeleteUserSubject(_ context.Context, userID, subjectID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := compositeKey(userID, subjectID)
	if _, ok := repo.db.userSubjects[key]; !ok {
		return subject.ErrUnknownOwned
	}
	delete(repo.db.userSubjects, key)
	return nil
}

func (repo *subjectRepository) EraseUser(_ context.Context, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for k, us := range repo.db.userSubjects {
		if us.UserID == userID {
			delete(repo.db.userSubjects, k)
		}
	}
	return nil
}
