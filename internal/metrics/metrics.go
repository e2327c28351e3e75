package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Workflow metrics
	WorkflowsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_workflows_started_total",
			Help: "Total number of outreach workflows started",
		},
		[]string{"workflow_type"},
	)

	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_workflows_completed_total",
			Help: "Total number of outreach workflows completed",
		},
		[]string{"workflow_type", "outcome"},
	)

	// Agent runtime metrics
	AgentRuntimeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_agent_runtime_calls_total",
			Help: "Total number of agent runtime invocations",
		},
		[]string{"model", "status"},
	)

	AgentRuntimeRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_agent_runtime_retries_total",
			Help: "Total number of HTTP-level agent runtime retries",
		},
		[]string{"model"},
	)

	// Research pipeline metrics
	ResearchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_research_attempts_total",
			Help: "Research pipeline attempts by result",
		},
		[]string{"result"},
	)

	ResearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outreach_research_duration_seconds",
			Help:    "Duration of one research pipeline run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Approval metrics
	ApprovalsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_approvals_requested_total",
			Help: "Total number of human approval requests issued",
		},
	)

	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_approval_decisions_total",
			Help: "Human approval decisions by outcome",
		},
		[]string{"outcome"},
	)

	StaleApprovals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_stale_approvals_total",
			Help: "Approval decisions that arrived for an unknown or already-resolved request",
		},
	)

	// Delivery metrics
	EmailsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_emails_delivered_total",
			Help: "Total number of approved emails handed to the transport",
		},
	)

	// Session/memory metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_session_cache_size",
			Help: "Number of sessions held in the local cache",
		},
	)

	LeadMemoriesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_lead_memories_saved_total",
			Help: "Total number of lead research records written to memory",
		},
	)

	// Persistence metrics
	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_archive_writes_total",
			Help: "Async archive writes by type and status",
		},
		[]string{"type", "status"},
	)

	ArchiveQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_archive_queue_depth",
			Help: "Pending writes in the archive queue",
		},
	)
)
