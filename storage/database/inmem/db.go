// Package inmemdb implements the repositories in memory. It backs the HTTP tests and local runs without PostgreSQL.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/feedback"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
)

// DB holds every table. One lock guards them all so cascades stay consistent.
type DB struct {
	mu           sync.RWMutex
	users        map[string]user.User
	subjects     map[string]subject.Subject
	userSubjects map[string]subject.UserSubject // key: userID/subjectID
	sessions     map[string]studysession.StudySession
	goals        map[string]goal.Goal
	achievements map[string]achievement.Achievement // key: userID/code
	feedback     map[string]feedback.Feedback
}

func Open() *DB {
	db := &DB{}
	db.reset()
	return db
}

func (db *DB) reset() {
	db.users = make(map[string]user.User)
	db.subjects = make(map[string]subject.Subject)
	db.userSubjects = make(map[string]subject.UserSubject)
	db.sessions = make(map[string]studysession.StudySession)
	db.goals = make(map[string]goal.Goal)
	db.achievements = make(map[string]achievement.Achievement)
	db.feedback = make(map[string]feedback.Feedback)
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

// Ping always succeeds; it lets DB serve as a health check.
func (db *DB) Ping() error { return nil }

func compositeKey(parts ...string) string { return strings.Join(parts, "/") }

// sortBy sorts `items` following `ordering`; `cmp` compares the field of two items and returns -1, 0 or 1.
func sortBy[T any](items []T, ordering []core.DBOrdering, cmp func(field string, a, b T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(ord.Field, items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func copyTags(tags []string) []string {
	return append([]string{}, tags...)
}
