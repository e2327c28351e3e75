package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/agentruntime"
	"github.com/fionalabs/outreach-orchestrator/internal/db"
	"github.com/fionalabs/outreach-orchestrator/internal/extraction"
	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
	"github.com/fionalabs/outreach-orchestrator/internal/research"
	"github.com/fionalabs/outreach-orchestrator/internal/tracing"
)

// MaxRetriesError is the terminal failure of the research pipeline: every
// attempt hit a retriable condition. It wraps the last underlying error.
type MaxRetriesError struct {
	Attempts int
	Last     error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("research failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *MaxRetriesError) Unwrap() error { return e.Last }

// ResearchLead runs the full invoke -> extract -> parse -> normalize ->
// validate pipeline with a bounded retry loop. Retriable conditions are an
// incomplete agent turn, a transient runtime failure, and research that
// validates empty; anything else fails fast so bugs are not masked by
// retries. The delay between attempts is fixed; the runtime client already
// does exponential backoff at the HTTP level.
func (a *Activities) ResearchLead(ctx context.Context, in ResearchLeadInput) (ResearchLeadResult, error) {
	ctx, span := tracing.StartSpan(ctx, "research_lead")
	defer span.End()

	started := time.Now()
	prompt := buildResearchPrompt(in)

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		rec, err := a.researchOnce(ctx, prompt, in.SessionID)
		if err == nil {
			metrics.ResearchAttempts.WithLabelValues("ok").Inc()
			metrics.ResearchDuration.Observe(time.Since(started).Seconds())
			a.archiveRun(ctx, in, rec, attempt, "completed", nil, started)
			return ResearchLeadResult{
				Research:   rec,
				Attempts:   attempt,
				DurationMs: time.Since(started).Milliseconds(),
			}, nil
		}

		if !isRetriable(err) {
			metrics.ResearchAttempts.WithLabelValues("fatal").Inc()
			a.archiveRun(ctx, in, research.Record{}, attempt, "failed", err, started)
			return ResearchLeadResult{}, err
		}

		lastErr = err
		metrics.ResearchAttempts.WithLabelValues("retry").Inc()
		a.logger.Warn("Research attempt failed, will retry",
			zap.String("lead", in.LeadName),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", a.maxAttempts),
			zap.Error(err),
		)

		if attempt < a.maxAttempts {
			select {
			case <-time.After(a.retryDelay):
			case <-ctx.Done():
				return ResearchLeadResult{}, ctx.Err()
			}
		}
	}

	metrics.ResearchAttempts.WithLabelValues("exhausted").Inc()
	err := &MaxRetriesError{Attempts: a.maxAttempts, Last: lastErr}
	a.archiveRun(ctx, in, research.Record{}, a.maxAttempts, "exhausted", err, started)
	return ResearchLeadResult{}, err
}

// researchOnce performs one pipeline pass.
func (a *Activities) researchOnce(ctx context.Context, prompt, sessionID string) (research.Record, error) {
	events, err := a.runtime.Run(ctx, agentruntime.RunRequest{
		Prompt:    prompt,
		SessionID: sessionID,
		Tools:     []string{"google_search"},
	})
	if err != nil {
		return research.Record{}, err
	}

	text, err := extraction.FinalText(events)
	if err != nil {
		return research.Record{}, err
	}

	rec, err := research.ParseResponse(text)
	if err != nil {
		return research.Record{}, err
	}

	if !research.IsValid(rec) {
		return research.Record{}, fmt.Errorf("agent returned degenerate research: %w", research.ErrInvalidResearch)
	}
	return rec, nil
}

// isRetriable classifies errors by kind, never by message text.
func isRetriable(err error) bool {
	var transient *agentruntime.TransientError
	return errors.Is(err, extraction.ErrIncompleteTurn) ||
		errors.Is(err, research.ErrInvalidResearch) ||
		errors.As(err, &transient)
}

func (a *Activities) archiveRun(ctx context.Context, in ResearchLeadInput, rec research.Record, attempts int, status string, runErr error, started time.Time) {
	if a.archive == nil {
		return
	}
	run := &db.ResearchRun{
		ID:          uuid.New(),
		WorkflowID:  workflowIDFromContext(ctx),
		SessionID:   in.SessionID,
		LeadName:    in.LeadName,
		LeadEmail:   in.LeadEmail,
		CareerField: in.CareerField,
		Status:      status,
		Attempts:    attempts,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
	if status == "completed" {
		run.Research = db.JSONB{
			"name":                    rec.Name,
			"current_role":            rec.CurrentRole,
			"company":                 rec.Company,
			"industry_focus":          rec.IndustryFocus,
			"professional_background": rec.ProfessionalBackground,
			"recent_achievements":     rec.RecentAchievements,
			"social_media":            rec.SocialMedia,
			"notable_connections":     rec.NotableConnections,
		}
	}
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorText = &msg
	}
	a.archive.ArchiveResearchRun(run)
}

// workflowIDFromContext is empty when the method is called outside an
// activity, as unit tests do.
func workflowIDFromContext(ctx context.Context) string {
	if !activity.IsActivity(ctx) {
		return ""
	}
	return activity.GetInfo(ctx).WorkflowExecution.ID
}
