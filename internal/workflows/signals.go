package workflows

// Query names registered by the outreach workflow.
const (
	// QueryPendingApproval returns the approval currently awaiting a human
	// decision, or nil. The HTTP layer uses it to reject stale decisions
	// before signaling.
	QueryPendingApproval = "pendingApproval"

	// QueryStatus returns the workflow's current OutreachStatus.
	QueryStatus = "outreachStatus"
)

// ApprovalSignalName derives the signal channel for one approval. Scoping the
// channel to the approval ID means a late decision for a superseded draft
// lands on a channel nobody reads instead of resuming the wrong pause.
func ApprovalSignalName(approvalID string) string {
	return "approval-decision-" + approvalID
}
