package activities

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
)

// RequestApproval mints the pending-decision handle for a draft. The workflow
// pauses on the returned approval ID; reviewers resolve it through the HTTP
// decision endpoint, which signals the workflow identified by InvocationID.
func (a *Activities) RequestApproval(ctx context.Context, in ApprovalRequestInput) (ApprovalRequest, error) {
	req := ApprovalRequest{
		ApprovalID:   uuid.New().String(),
		InvocationID: in.WorkflowID,
		LeadName:     in.LeadName,
		EmailSubject: in.EmailSubject,
		EmailBody:    in.EmailBody,
		Attempt:      in.Attempt,
		RequestedAt:  time.Now(),
	}

	a.logger.Info("Approval requested",
		zap.String("approval_id", req.ApprovalID),
		zap.String("workflow_id", in.WorkflowID),
		zap.String("lead", in.LeadName),
		zap.Int("attempt", in.Attempt),
	)
	metrics.ApprovalsRequested.Inc()
	return req, nil
}
