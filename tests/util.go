package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
)

// Password satisfies the password policy and resembles none of the test users.
const Password = "Qz7!vLm#9xWk"

// NewValidator returns a validator with every custom validation and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Logger is a core.Logger that keeps the messages it is given.
type Logger struct {
	mu       sync.Mutex
	messages map[string][]string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{messages: make(map[string][]string)}
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages[level] = append(l.messages[level], msg)
}

// Messages returns the messages logged at `level` (debug, info, warn, error, fatal).
func (l *Logger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages[level]...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo subject.Repository, name string) subject.Subject {
	sub, err := repo.CreateSubject(context.Background(), subject.Subject{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     "#4f46e5",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}

// CreateSession stores a session of `minutes` minutes starting at `startedAt`, bypassing observers.
func CreateSession(
	t *testing.T,
	repo studysession.Repository,
	userID, subjectID string,
	startedAt time.Time,
	minutes int,
) studysession.StudySession {
	now := time.Now().UTC()
	startedAt = startedAt.UTC()
	sess, err := repo.CreateSession(context.Background(), studysession.StudySession{
		ID:              uuid.NewString(),
		UserID:          userID,
		SubjectID:       subjectID,
		Title:           "Session",
		StartedAt:       startedAt,
		EndedAt:         startedAt.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		Tags:            []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return sess
}
