// Package scheduler runs the periodic jobs of the API.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
)

// GoalSweeper flags the goals whose deadline has passed.
type GoalSweeper interface {
	MarkMissed(ctx context.Context) (int, error)
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	goals     GoalSweeper
	logger    core.Logger
	timeout   time.Duration
}

func New(goals GoalSweeper, logger core.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		goals:     goals,
		logger:    logger,
		timeout:   time.Minute,
	}
}

// Start schedules the jobs and runs them in the background. The first run happens immediately.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(1).Hour().SingletonMode().Do(s.sweepMissedGoals); err != nil {
		return errors.Wrap(err, "scheduling missed goals sweep")
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweepMissedGoals() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.goals.MarkMissed(ctx)
	if err != nil {
		s.logger.Error("sweeping missed goals", err)
		return
	}
	if n > 0 {
		s.logger.Info("goals marked as missed", map[string]interface{}{"count": n})
	}
}
