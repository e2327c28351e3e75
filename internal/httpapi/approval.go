package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/activities"
	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
	"github.com/fionalabs/outreach-orchestrator/internal/workflows"
)

// ErrStaleApproval means the decision references an approval the workflow is
// no longer waiting on: the draft was superseded, timed out, or already
// decided. Returned to the client as 409 Conflict.
var ErrStaleApproval = errors.New("approval is no longer pending")

// ApprovalHandler resolves human decisions by signaling the paused workflow.
type ApprovalHandler struct {
	temporal  WorkflowClient
	logger    *zap.Logger
	authToken string
}

// NewApprovalHandler creates a new handler.
func NewApprovalHandler(t WorkflowClient, logger *zap.Logger, authToken string) *ApprovalHandler {
	return &ApprovalHandler{temporal: t, logger: logger, authToken: authToken}
}

// RegisterRoutes registers approval routes on the provided mux.
func (h *ApprovalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/approvals/decision", h.handleDecision)
}

// approvalDecisionRequest is the expected payload for approval decisions.
type approvalDecisionRequest struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`
	ApprovalID string `json:"approval_id"`
	Confirmed  bool   `json:"confirmed"`
	Feedback   string `json:"feedback,omitempty"`
	DecidedBy  string `json:"decided_by,omitempty"`
}

func (h *ApprovalHandler) handleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	// Auth: Bearer token
	if h.authToken != "" {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != h.authToken {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
	}

	var req approvalDecisionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("approval decode error", zap.Error(err))
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.WorkflowID == "" || req.ApprovalID == "" {
		http.Error(w, `{"error":"workflow_id and approval_id are required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Reject decisions for drafts the workflow is no longer waiting on, so a
	// reviewer acting on an outdated notification gets a clear conflict
	// instead of silently signaling into the void.
	if err := h.checkPending(ctx, req.WorkflowID, req.RunID, req.ApprovalID); err != nil {
		if errors.Is(err, ErrStaleApproval) {
			metrics.StaleApprovals.Inc()
			http.Error(w, `{"error":"approval is no longer pending"}`, http.StatusConflict)
			return
		}
		h.logger.Error("pending approval query failed",
			zap.String("workflow_id", req.WorkflowID), zap.Error(err))
		http.Error(w, `{"error":"failed to query workflow"}`, http.StatusBadGateway)
		return
	}

	payload := activities.ApprovalDecision{
		ApprovalID: req.ApprovalID,
		Confirmed:  req.Confirmed,
		Feedback:   req.Feedback,
		DecidedBy:  req.DecidedBy,
		Timestamp:  time.Now(),
	}
	signalName := workflows.ApprovalSignalName(req.ApprovalID)

	if err := h.temporal.SignalWorkflow(ctx, req.WorkflowID, req.RunID, signalName, payload); err != nil {
		h.logger.Error("failed to signal workflow",
			zap.String("workflow_id", req.WorkflowID),
			zap.String("signal", signalName),
			zap.Error(err))
		http.Error(w, `{"error":"failed to signal workflow"}`, http.StatusBadGateway)
		return
	}

	outcome := "rejected"
	if req.Confirmed {
		outcome = "approved"
	}
	metrics.ApprovalDecisions.WithLabelValues(outcome).Inc()
	h.logger.Info("Approval decision delivered",
		zap.String("workflow_id", req.WorkflowID),
		zap.String("approval_id", req.ApprovalID),
		zap.String("outcome", outcome),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "sent",
		"workflow_id": req.WorkflowID,
		"approval_id": req.ApprovalID,
		"outcome":     outcome,
	})
}

// checkPending queries the workflow's pending approval and compares it with
// the decision's approval ID.
func (h *ApprovalHandler) checkPending(ctx context.Context, workflowID, runID, approvalID string) error {
	val, err := h.temporal.QueryWorkflow(ctx, workflowID, runID, workflows.QueryPendingApproval)
	if err != nil {
		return err
	}
	var pending *activities.ApprovalRequest
	if err := val.Get(&pending); err != nil {
		return err
	}
	if pending == nil || pending.ApprovalID != approvalID {
		return ErrStaleApproval
	}
	return nil
}
