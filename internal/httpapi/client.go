// Package httpapi exposes the outreach system over HTTP: submitting leads,
// resolving approval decisions, and reading workflow status. Handlers talk to
// Temporal through a narrow client interface so tests can stub it.
package httpapi

import (
	"context"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

// WorkflowClient is the slice of client.Client the handlers need.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
}
