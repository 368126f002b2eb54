package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sweeperMock struct {
	calls int
	n     int
	err   error
}

func (m *sweeperMock) MarkMissed(context.Context) (int, error) {
	m.calls++
	return m.n, m.err
}

type loggerMock struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *loggerMock) Debug(string, ...interface{}) {}
func (l *loggerMock) Warn(string, ...interface{})  {}
func (l *loggerMock) Fatal(string, ...interface{}) {}
func (l *loggerMock) Info(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}
func (l *loggerMock) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func TestScheduler_sweepMissedGoals(t *testing.T) {
	tests := []struct {
		name       string
		sweeper    *sweeperMock
		wantInfos  int
		wantErrors int
	}{
		{name: "nothing missed", sweeper: &sweeperMock{}},
		{name: "some missed", sweeper: &sweeperMock{n: 3}, wantInfos: 1},
		{name: "failure", sweeper: &sweeperMock{err: errors.New("db down")}, wantErrors: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &loggerMock{}
			New(tt.sweeper, logger).sweepMissedGoals()

			assert.Equal(t, 1, tt.sweeper.calls)
			assert.Len(t, logger.infos, tt.wantInfos)
			assert.Len(t, logger.errors, tt.wantErrors)
		})
	}
}
