// Package health reports whether the service and its dependencies are up.
package health

import (
	"context"
	"sort"
	"time"
)

// Statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc returns a non-nil error when the dependency is down.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	critical bool
}

type Report struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Uptime      float64           `json:"uptime"` // seconds
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks"`
	// Failures keeps the errors of the failed checks for logging. They are never served.
	Failures map[string]error `json:"-"`
}

func (r Report) Healthy() bool { return r.Status != StatusUnhealthy }

type Checker struct {
	version string
	env     string
	started time.Time
	checks  []check
	now     func() time.Time
}

func NewChecker(version, env string) *Checker {
	return &Checker{version: version, env: env, started: time.Now(), now: time.Now}
}

// Critical registers a dependency without which the service is unhealthy.
// Checks must be registered before the Checker is shared.
func (c *Checker) Critical(name string, fn CheckFunc) *Checker {
	return c.register(check{name: name, fn: fn, critical: true})
}

// Optional registers a dependency without which the service is degraded.
func (c *Checker) Optional(name string, fn CheckFunc) *Checker {
	return c.register(check{name: name, fn: fn})
}

func (c *Checker) register(chk check) *Checker {
	c.checks = append(c.checks, chk)
	sort.SliceStable(c.checks, func(i, j int) bool { return c.checks[i].name < c.checks[j].name })
	return c
}

// Check runs every registered check; each gets at most `timeout`.
func (c *Checker) Check(ctx context.Context, timeout time.Duration) Report {
	now := c.now()
	uptime := now.Sub(c.started).Seconds()
	if uptime <= 0 {
		uptime = time.Millisecond.Seconds()
	}
	report := Report{
		Status:      StatusHealthy,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Uptime:      uptime,
		Version:     c.version,
		Environment: c.env,
		Checks:      make(map[string]string, len(c.checks)),
	}

	for _, chk := range c.checks {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := chk.fn(cctx)
		cancel()

		if err == nil {
			report.Checks[chk.name] = "ok"
			continue
		}
		report.Checks[chk.name] = "error"
		if report.Failures == nil {
			report.Failures = make(map[string]error)
		}
		report.Failures[chk.name] = err
		switch {
		case chk.critical:
			report.Status = StatusUnhealthy
		case report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}
