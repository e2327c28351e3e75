// Package health aggregates dependency probes behind the standard
// /health, /health/ready and /health/live endpoints.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of one check or the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration"`
	CheckedAt time.Time `json:"checked_at"`
}

// Manager runs registered checkers on demand. Critical checkers gate
// readiness; non-critical ones are reported but never fail the probe.
type Manager struct {
	mu       sync.RWMutex
	checkers []registered
	timeout  time.Duration
	logger   *zap.Logger
}

type registered struct {
	checker  Checker
	critical bool
}

// NewManager creates a health manager with a per-check timeout.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{timeout: 5 * time.Second, logger: logger}
}

// Register adds a checker. Critical failures make readiness fail.
func (m *Manager) Register(c Checker, critical bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, registered{checker: c, critical: critical})
}

// Check runs every checker and reports whether all critical ones passed.
func (m *Manager) Check(ctx context.Context) ([]CheckResult, bool) {
	m.mu.RLock()
	checkers := make([]registered, len(m.checkers))
	copy(checkers, m.checkers)
	m.mu.RUnlock()

	results := make([]CheckResult, 0, len(checkers))
	ok := true
	for _, reg := range checkers {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		started := time.Now()
		err := reg.checker.Check(cctx)
		cancel()

		result := CheckResult{
			Name:      reg.checker.Name(),
			Status:    StatusHealthy,
			Duration:  time.Since(started).String(),
			CheckedAt: time.Now(),
		}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Error = err.Error()
			if reg.critical {
				ok = false
			}
			m.logger.Warn("Health check failed",
				zap.String("check", reg.checker.Name()),
				zap.Bool("critical", reg.critical),
				zap.Error(err),
			)
		}
		results = append(results, result)
	}
	return results, ok
}

// CheckFunc adapts a function into a Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.CheckName }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }
