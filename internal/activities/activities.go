// Package activities implements the Temporal activities behind the lead
// outreach workflow: the research pipeline with its bounded retry loop,
// email drafting, human approval requests, delivery, and lead memory.
package activities

import (
	"time"

	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/agentruntime"
	"github.com/fionalabs/outreach-orchestrator/internal/db"
	"github.com/fionalabs/outreach-orchestrator/internal/session"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// Activities bundles the dependencies shared by all activity methods.
// Sessions and archive are optional; activities degrade to logging when a
// collaborator is absent (useful in tests and local runs).
type Activities struct {
	runtime  agentruntime.Caller
	sessions *session.Manager
	archive  *db.Client
	logger   *zap.Logger

	maxAttempts int
	retryDelay  time.Duration
}

// NewActivities wires the activity set.
func NewActivities(runtime agentruntime.Caller, sessions *session.Manager, archive *db.Client, logger *zap.Logger) *Activities {
	return &Activities{
		runtime:     runtime,
		sessions:    sessions,
		archive:     archive,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// WithRetryPolicy overrides the pipeline retry knobs; used by tests.
func (a *Activities) WithRetryPolicy(maxAttempts int, delay time.Duration) *Activities {
	a.maxAttempts = maxAttempts
	a.retryDelay = delay
	return a
}
