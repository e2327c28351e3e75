package constants

// Activity names used for workflow registration and execution.
// Using constants eliminates magic strings and ensures consistency.
const (
	// Research pipeline
	ResearchLeadActivity = "ResearchLead"

	// Email drafting and delivery
	DraftEmailActivity   = "DraftEmail"
	DeliverEmailActivity = "DeliverEmail"

	// Human intervention
	RequestApprovalActivity = "RequestApproval"

	// Lead memory
	SaveLeadMemoryActivity   = "SaveLeadMemory"
	RecallLeadMemoryActivity = "RecallLeadMemory"
	UpdateSessionActivity    = "UpdateSession"
)
