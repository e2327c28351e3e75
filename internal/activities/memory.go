package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
	"github.com/fionalabs/outreach-orchestrator/internal/session"
)

// SaveLeadMemory persists research so later workflows against the same lead
// can build on it. It runs on every terminal path, so workflow completions
// are counted here. No-op store when no session backend is wired.
func (a *Activities) SaveLeadMemory(ctx context.Context, in SaveLeadMemoryInput) error {
	outcome := "exhausted"
	if in.Delivered {
		outcome = "delivered"
	}
	metrics.WorkflowsCompleted.WithLabelValues("outreach", outcome).Inc()

	if a.sessions == nil {
		a.logger.Debug("Lead memory skipped, no session store", zap.String("lead", in.LeadName))
		return nil
	}
	return a.sessions.SaveLeadMemory(ctx, &session.LeadMemory{
		LeadName:     in.LeadName,
		LeadEmail:    in.LeadEmail,
		Research:     in.Research,
		EmailSubject: in.EmailSubject,
		Delivered:    in.Delivered,
	})
}

// RecallLeadMemory looks up remembered research by lead name. A miss is not
// an error; the workflow simply starts fresh.
func (a *Activities) RecallLeadMemory(ctx context.Context, in RecallLeadMemoryInput) (RecallLeadMemoryResult, error) {
	if a.sessions == nil {
		return RecallLeadMemoryResult{}, nil
	}
	mem, err := a.sessions.GetLeadMemory(ctx, in.LeadName)
	if err != nil {
		// Memory is best-effort; a Redis hiccup must not fail the workflow.
		a.logger.Warn("Lead memory lookup failed", zap.String("lead", in.LeadName), zap.Error(err))
		return RecallLeadMemoryResult{}, nil
	}
	if mem == nil {
		return RecallLeadMemoryResult{}, nil
	}
	rec := mem.Research
	return RecallLeadMemoryResult{Found: true, Research: &rec, SavedAt: mem.SavedAt}, nil
}

// UpdateSession appends an exchange to the conversation history.
func (a *Activities) UpdateSession(ctx context.Context, in UpdateSessionInput) error {
	if a.sessions == nil || in.SessionID == "" {
		return nil
	}
	sess, err := a.sessions.GetSession(ctx, in.SessionID)
	if err != nil {
		a.logger.Warn("Session lookup failed", zap.String("session_id", in.SessionID), zap.Error(err))
		return nil
	}
	sess.AddMessage(in.Role, in.Content)
	return a.sessions.UpdateSession(ctx, sess)
}
