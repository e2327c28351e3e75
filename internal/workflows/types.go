// Package workflows implements the durable lead outreach workflow: research
// the lead, draft a personalized email, pause for human approval, and deliver
// on confirmation. Rejections feed reviewer feedback back into regeneration,
// bounded by a fixed attempt budget.
package workflows

// Workflow states, exposed through the status query.
const (
	StateDrafting         = "DRAFTING"
	StateAwaitingApproval = "AWAITING_APPROVAL"
	StateApproved         = "APPROVED"
	StateRejected         = "REJECTED"
	StateExhausted        = "EXHAUSTED"
)

// OutreachInput starts one lead outreach workflow.
type OutreachInput struct {
	LeadName          string `json:"lead_name"`
	LeadEmail         string `json:"lead_email"`
	CareerField       string `json:"career_field"`
	CareerDescription string `json:"career_description"`

	// ContactType and ContactContext are optional caller-supplied hints
	// folded into the research prompt.
	ContactType    string                 `json:"contact_type,omitempty"`
	ContactContext map[string]interface{} `json:"contact_context,omitempty"`

	SessionID string `json:"session_id,omitempty"`

	// ApprovalTimeoutSeconds caps how long each draft waits for a reviewer.
	// Zero means the default (24h). A timeout counts as a rejection.
	ApprovalTimeoutSeconds int `json:"approval_timeout_seconds,omitempty"`
}

// OutreachResult is the workflow's terminal report.
type OutreachResult struct {
	State            string `json:"state"`
	Attempts         int    `json:"attempts"`
	ResearchAttempts int    `json:"research_attempts"`
	EmailSubject     string `json:"email_subject,omitempty"`
	MessageID        string `json:"message_id,omitempty"`
	LastFeedback     string `json:"last_feedback,omitempty"`
}

// OutreachStatus is the live view returned by the status query.
type OutreachStatus struct {
	State        string `json:"state"`
	Attempt      int    `json:"attempt"`
	LeadName     string `json:"lead_name"`
	EmailSubject string `json:"email_subject,omitempty"`
}
