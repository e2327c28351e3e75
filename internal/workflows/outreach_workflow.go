package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fionalabs/outreach-orchestrator/internal/activities"
	"github.com/fionalabs/outreach-orchestrator/internal/constants"
)

const (
	// maxDraftAttempts bounds the generate -> review loop. After this many
	// rejections the workflow gives up rather than grinding the reviewer.
	maxDraftAttempts = 3

	defaultApprovalTimeout = 24 * time.Hour
)

// OutreachWorkflow runs the full lead outreach pipeline. Research retries
// happen inside the activity, so Temporal-level retry is disabled for it;
// delivery is likewise single-shot so an approved email can never be sent
// twice. Drafting does retry: a reply without the expected headers is an
// LLM flake, not a reason to burn the lead.
func OutreachWorkflow(ctx workflow.Context, input OutreachInput) (OutreachResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting OutreachWorkflow",
		"lead", input.LeadName,
		"career_field", input.CareerField,
	)

	var (
		pending *activities.ApprovalRequest
		status  = OutreachStatus{State: StateDrafting, LeadName: input.LeadName}
	)
	if err := workflow.SetQueryHandler(ctx, QueryPendingApproval, func() (*activities.ApprovalRequest, error) {
		return pending, nil
	}); err != nil {
		return OutreachResult{}, err
	}
	if err := workflow.SetQueryHandler(ctx, QueryStatus, func() (OutreachStatus, error) {
		return status, nil
	}); err != nil {
		return OutreachResult{}, err
	}

	singleShot := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	quick := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	drafting := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumAttempts: 3,
		},
	})

	// Recall is best-effort; a miss or a store error both mean fresh research.
	var recalled activities.RecallLeadMemoryResult
	if err := workflow.ExecuteActivity(quick, constants.RecallLeadMemoryActivity, activities.RecallLeadMemoryInput{
		LeadName: input.LeadName,
	}).Get(ctx, &recalled); err != nil {
		logger.Warn("Lead memory recall failed", "error", err)
	}
	if recalled.Found {
		logger.Info("Recalled prior research for lead", "lead", input.LeadName, "saved_at", recalled.SavedAt)
	}

	var researched activities.ResearchLeadResult
	if err := workflow.ExecuteActivity(singleShot, constants.ResearchLeadActivity, activities.ResearchLeadInput{
		LeadName:          input.LeadName,
		LeadEmail:         input.LeadEmail,
		CareerField:       input.CareerField,
		CareerDescription: input.CareerDescription,
		ContactType:       input.ContactType,
		ContactContext:    input.ContactContext,
		SessionID:         input.SessionID,
		PriorResearch:     recalled.Research,
	}).Get(ctx, &researched); err != nil {
		logger.Error("Research pipeline failed", "lead", input.LeadName, "error", err)
		return OutreachResult{State: StateExhausted}, err
	}

	approvalTimeout := defaultApprovalTimeout
	if input.ApprovalTimeoutSeconds > 0 {
		approvalTimeout = time.Duration(input.ApprovalTimeoutSeconds) * time.Second
	}

	var (
		draft    activities.DraftEmailResult
		feedback string
	)
	for attempt := 1; attempt <= maxDraftAttempts; attempt++ {
		status.State = StateDrafting
		status.Attempt = attempt

		if err := workflow.ExecuteActivity(drafting, constants.DraftEmailActivity, activities.DraftEmailInput{
			LeadName:    input.LeadName,
			CareerField: input.CareerField,
			Research:    researched.Research,
			Attempt:     attempt,
			Feedback:    feedback,
			SessionID:   input.SessionID,
		}).Get(ctx, &draft); err != nil {
			logger.Error("Draft generation failed", "attempt", attempt, "error", err)
			return OutreachResult{State: StateExhausted, Attempts: attempt, ResearchAttempts: researched.Attempts}, err
		}
		status.EmailSubject = draft.Subject

		var approval activities.ApprovalRequest
		if err := workflow.ExecuteActivity(quick, constants.RequestApprovalActivity, activities.ApprovalRequestInput{
			WorkflowID:   workflow.GetInfo(ctx).WorkflowExecution.ID,
			RunID:        workflow.GetInfo(ctx).WorkflowExecution.RunID,
			LeadName:     input.LeadName,
			EmailSubject: draft.Subject,
			EmailBody:    draft.Body,
			Attempt:      attempt,
		}).Get(ctx, &approval); err != nil {
			return OutreachResult{State: StateExhausted, Attempts: attempt, ResearchAttempts: researched.Attempts}, err
		}

		pending = &approval
		status.State = StateAwaitingApproval
		logger.Info("Waiting for human approval", "approval_id", approval.ApprovalID, "attempt", attempt)

		decision := awaitDecision(ctx, approval.ApprovalID, approvalTimeout)
		pending = nil

		if decision.Confirmed {
			status.State = StateApproved
			var delivered activities.DeliverEmailResult
			if err := workflow.ExecuteActivity(singleShot, constants.DeliverEmailActivity, activities.DeliverEmailInput{
				WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
				LeadName:   input.LeadName,
				Recipient:  input.LeadEmail,
				Subject:    draft.Subject,
				Body:       draft.Body,
				Attempt:    attempt,
			}).Get(ctx, &delivered); err != nil {
				logger.Error("Delivery failed", "error", err)
				return OutreachResult{State: StateApproved, Attempts: attempt, ResearchAttempts: researched.Attempts, EmailSubject: draft.Subject}, err
			}

			finishOutreach(ctx, input, researched, draft, true)
			logger.Info("OutreachWorkflow completed", "message_id", delivered.MessageID, "attempts", attempt)
			return OutreachResult{
				State:            StateApproved,
				Attempts:         attempt,
				ResearchAttempts: researched.Attempts,
				EmailSubject:     draft.Subject,
				MessageID:        delivered.MessageID,
			}, nil
		}

		status.State = StateRejected
		feedback = decision.Feedback
		logger.Info("Draft rejected", "attempt", attempt, "feedback", feedback)
	}

	status.State = StateExhausted
	finishOutreach(ctx, input, researched, draft, false)
	logger.Warn("Approval attempts exhausted", "lead", input.LeadName, "attempts", maxDraftAttempts)
	return OutreachResult{
		State:            StateExhausted,
		Attempts:         maxDraftAttempts,
		ResearchAttempts: researched.Attempts,
		EmailSubject:     draft.Subject,
		LastFeedback:     feedback,
	}, nil
}

// awaitDecision blocks on the approval's signal channel until a decision
// arrives or the timeout fires. Timeout is reported as a rejection so the
// workflow can terminate through the normal exhaustion path.
func awaitDecision(ctx workflow.Context, approvalID string, timeout time.Duration) activities.ApprovalDecision {
	ch := workflow.GetSignalChannel(ctx, ApprovalSignalName(approvalID))
	timer := workflow.NewTimer(ctx, timeout)

	var decision activities.ApprovalDecision
	sel := workflow.NewSelector(ctx)
	sel.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &decision)
	})
	sel.AddFuture(timer, func(f workflow.Future) {
		decision = activities.ApprovalDecision{ApprovalID: approvalID, Confirmed: false, Feedback: "approval timed out"}
	})
	sel.Select(ctx)
	return decision
}

// finishOutreach persists the lead memory and session transcript. Both are
// best-effort bookkeeping; failures are logged, never surfaced.
func finishOutreach(ctx workflow.Context, input OutreachInput, researched activities.ResearchLeadResult, draft activities.DraftEmailResult, delivered bool) {
	logger := workflow.GetLogger(ctx)
	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	detached, _ := workflow.NewDisconnectedContext(ctx)
	dctx := workflow.WithActivityOptions(detached, opts)

	if err := workflow.ExecuteActivity(dctx, constants.SaveLeadMemoryActivity, activities.SaveLeadMemoryInput{
		LeadName:     input.LeadName,
		LeadEmail:    input.LeadEmail,
		Research:     researched.Research,
		EmailSubject: draft.Subject,
		Delivered:    delivered,
	}).Get(ctx, nil); err != nil {
		logger.Warn("Lead memory save failed", "error", err)
	}

	if input.SessionID != "" {
		summary := "Outreach to " + input.LeadName + " finished without delivery"
		if delivered {
			summary = "Delivered outreach email to " + input.LeadName + ": " + draft.Subject
		}
		if err := workflow.ExecuteActivity(dctx, constants.UpdateSessionActivity, activities.UpdateSessionInput{
			SessionID: input.SessionID,
			Role:      "assistant",
			Content:   summary,
		}).Get(ctx, nil); err != nil {
			logger.Warn("Session update failed", "error", err)
		}
	}
}
