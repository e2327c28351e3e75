package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/constants"
	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
	"github.com/fionalabs/outreach-orchestrator/internal/workflows"
)

// OutreachHandler starts outreach workflows from lead submissions and serves
// their live status. The submit endpoint is called from browser forms, so it
// answers CORS preflights and allows any origin.
type OutreachHandler struct {
	temporal WorkflowClient
	logger   *zap.Logger

	// approvalTimeoutSeconds is forwarded to every started workflow; it caps
	// how long each draft waits for a reviewer.
	approvalTimeoutSeconds int
}

// NewOutreachHandler creates a new handler.
func NewOutreachHandler(t WorkflowClient, approvalTimeoutSeconds int, logger *zap.Logger) *OutreachHandler {
	return &OutreachHandler{temporal: t, logger: logger, approvalTimeoutSeconds: approvalTimeoutSeconds}
}

// RegisterRoutes registers outreach routes on the provided mux.
func (h *OutreachHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/research", h.handleSubmit)
	mux.HandleFunc("/outreach/", h.handleStatus)
}

// researchRequest is one lead submission. Contact type and context are
// optional hints folded into the research prompt.
type researchRequest struct {
	ContactName       string                 `json:"contact_name"`
	ContactEmail      string                 `json:"contact_email"`
	CareerField       string                 `json:"career_field"`
	CareerDescription string                 `json:"career_description"`
	ContactType       string                 `json:"contact_type,omitempty"`
	ContactContext    map[string]interface{} `json:"contact_context,omitempty"`
	SessionID         string                 `json:"session_id,omitempty"`
}

func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func (h *OutreachHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	var missing []string
	for field, value := range map[string]string{
		"contact_name":       req.ContactName,
		"contact_email":      req.ContactEmail,
		"career_field":       req.CareerField,
		"career_description": req.CareerDescription,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "missing required fields",
			"missing": missing,
		})
		return
	}

	workflowID := fmt.Sprintf("outreach-%s", uuid.New().String())
	run, err := h.temporal.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: constants.OutreachTaskQueue,
	}, workflows.OutreachWorkflow, workflows.OutreachInput{
		LeadName:               req.ContactName,
		LeadEmail:              req.ContactEmail,
		CareerField:            req.CareerField,
		CareerDescription:      req.CareerDescription,
		ContactType:            req.ContactType,
		ContactContext:         req.ContactContext,
		SessionID:              req.SessionID,
		ApprovalTimeoutSeconds: h.approvalTimeoutSeconds,
	})
	if err != nil {
		h.logger.Error("failed to start outreach workflow",
			zap.String("lead", req.ContactName), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
		return
	}

	metrics.WorkflowsStarted.WithLabelValues("outreach").Inc()
	h.logger.Info("Outreach workflow started",
		zap.String("workflow_id", workflowID),
		zap.String("lead", req.ContactName),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "started",
		"workflow_id": workflowID,
		"run_id":      run.GetRunID(),
	})
}

// handleStatus serves GET /outreach/{workflow_id}: the live state, current
// attempt, and any approval awaiting a decision.
func (h *OutreachHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	workflowID := strings.TrimPrefix(r.URL.Path, "/outreach/")
	if workflowID == "" || strings.Contains(workflowID, "/") {
		http.Error(w, `{"error":"workflow id required"}`, http.StatusBadRequest)
		return
	}

	val, err := h.temporal.QueryWorkflow(r.Context(), workflowID, "", workflows.QueryStatus)
	if err != nil {
		h.logger.Warn("status query failed", zap.String("workflow_id", workflowID), zap.Error(err))
		http.Error(w, `{"error":"workflow not found"}`, http.StatusNotFound)
		return
	}
	var status workflows.OutreachStatus
	if err := val.Get(&status); err != nil {
		http.Error(w, `{"error":"failed to decode status"}`, http.StatusBadGateway)
		return
	}

	resp := map[string]any{
		"workflow_id": workflowID,
		"state":       status.State,
		"attempt":     status.Attempt,
		"lead_name":   status.LeadName,
	}
	if status.EmailSubject != "" {
		resp["email_subject"] = status.EmailSubject
	}
	if status.State == workflows.StateAwaitingApproval {
		if pv, err := h.temporal.QueryWorkflow(r.Context(), workflowID, "", workflows.QueryPendingApproval); err == nil {
			var pending interface{}
			if err := pv.Get(&pending); err == nil && pending != nil {
				resp["pending_approval"] = pending
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ServerOptions configures the outreach HTTP server.
type ServerOptions struct {
	Port                   int
	AuthToken              string
	ApprovalTimeoutSeconds int
}

// StartServer starts the outreach HTTP server with all routes mounted.
func StartServer(opts ServerOptions, t WorkflowClient, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	NewOutreachHandler(t, opts.ApprovalTimeoutSeconds, logger).RegisterRoutes(mux)
	NewApprovalHandler(t, logger, opts.AuthToken).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Starting outreach API server", zap.Int("port", opts.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Outreach API server failed", zap.Error(err))
		}
	}()
	return srv
}
