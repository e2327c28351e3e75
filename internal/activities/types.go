package activities

import (
	"time"

	"github.com/fionalabs/outreach-orchestrator/internal/research"
)

// ResearchLeadInput describes one lead to research.
type ResearchLeadInput struct {
	LeadName          string                 `json:"lead_name"`
	LeadEmail         string                 `json:"lead_email"`
	CareerField       string                 `json:"career_field"`
	CareerDescription string                 `json:"career_description"`
	ContactType       string                 `json:"contact_type,omitempty"`
	ContactContext    map[string]interface{} `json:"contact_context,omitempty"`
	SessionID         string                 `json:"session_id,omitempty"`

	// PriorResearch is remembered research from an earlier session, injected
	// into the prompt so the agent builds on it instead of starting over.
	PriorResearch *research.Record `json:"prior_research,omitempty"`
}

// ResearchLeadResult is the validated outcome of the research pipeline.
type ResearchLeadResult struct {
	Research   research.Record `json:"research"`
	Attempts   int             `json:"attempts"`
	DurationMs int64           `json:"duration_ms"`
}

// DraftEmailInput asks the agent for a personalized outreach email.
type DraftEmailInput struct {
	LeadName    string          `json:"lead_name"`
	CareerField string          `json:"career_field"`
	Research    research.Record `json:"research"`
	Attempt     int             `json:"attempt"`
	// Feedback carries the reviewer's rejection feedback into regeneration.
	Feedback  string `json:"feedback,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// DraftEmailResult is one generated email draft.
type DraftEmailResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Attempt int    `json:"attempt"`
}

// ApprovalRequestInput submits a draft for human review.
type ApprovalRequestInput struct {
	WorkflowID   string `json:"workflow_id"`
	RunID        string `json:"run_id"`
	LeadName     string `json:"lead_name"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
	Attempt      int    `json:"attempt"`
}

// ApprovalRequest is the pending-decision handle: the approval ID correlates
// the human decision with the waiting workflow, and the invocation ID tells
// the reviewer's client which workflow to resume.
type ApprovalRequest struct {
	ApprovalID   string    `json:"approval_id"`
	InvocationID string    `json:"invocation_id"`
	LeadName     string    `json:"lead_name"`
	EmailSubject string    `json:"email_subject"`
	EmailBody    string    `json:"email_body"`
	Attempt      int       `json:"attempt"`
	RequestedAt  time.Time `json:"requested_at"`
}

// ApprovalDecision is the human's response, delivered as a workflow signal.
type ApprovalDecision struct {
	ApprovalID string    `json:"approval_id"`
	Confirmed  bool      `json:"confirmed"`
	Feedback   string    `json:"feedback,omitempty"`
	DecidedBy  string    `json:"decided_by,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeliverEmailInput hands an approved draft to the transport.
type DeliverEmailInput struct {
	WorkflowID string `json:"workflow_id"`
	LeadName   string `json:"lead_name"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Attempt    int    `json:"attempt"`
}

// DeliverEmailResult reports the transport outcome. Delivery happens exactly
// once per approval and is never retried automatically.
type DeliverEmailResult struct {
	Status     string    `json:"status"`
	MessageID  string    `json:"message_id"`
	Recipient  string    `json:"recipient"`
	Timestamp  time.Time `json:"timestamp"`
	BodyLength int       `json:"body_length"`
}

// SaveLeadMemoryInput persists research for cross-session recall.
type SaveLeadMemoryInput struct {
	LeadName     string          `json:"lead_name"`
	LeadEmail    string          `json:"lead_email"`
	Research     research.Record `json:"research"`
	EmailSubject string          `json:"email_subject,omitempty"`
	Delivered    bool            `json:"delivered"`
}

// RecallLeadMemoryInput looks up remembered research by lead name.
type RecallLeadMemoryInput struct {
	LeadName string `json:"lead_name"`
}

// RecallLeadMemoryResult carries the remembered research, if any.
type RecallLeadMemoryResult struct {
	Found    bool             `json:"found"`
	Research *research.Record `json:"research,omitempty"`
	SavedAt  time.Time        `json:"saved_at,omitempty"`
}

// UpdateSessionInput appends an exchange to the session history.
type UpdateSessionInput struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}
