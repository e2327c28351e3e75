package activities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fionalabs/outreach-orchestrator/internal/agentruntime"
	"github.com/fionalabs/outreach-orchestrator/internal/extraction"
	"github.com/fionalabs/outreach-orchestrator/internal/research"
)

type replyFn = func() ([]agentruntime.Event, error)

// scriptedRuntime plays back one canned reply per call.
type scriptedRuntime struct {
	calls   int
	replies []replyFn
}

func (s *scriptedRuntime) Run(ctx context.Context, req agentruntime.RunRequest) ([]agentruntime.Event, error) {
	idx := s.calls
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	s.calls++
	return s.replies[idx]()
}

func textReply(text string) func() ([]agentruntime.Event, error) {
	return func() ([]agentruntime.Event, error) {
		return []agentruntime.Event{{
			Author: "agent",
			Parts:  []agentruntime.Part{agentruntime.TextPart(text)},
		}}, nil
	}
}

func toolOnlyReply() func() ([]agentruntime.Event, error) {
	return func() ([]agentruntime.Event, error) {
		return []agentruntime.Event{{
			Author: "agent",
			Parts: []agentruntime.Part{{
				Kind: agentruntime.PartFunctionCall,
				Call: &agentruntime.FunctionCall{Name: "google_search"},
			}},
		}}, nil
	}
}

func errorReply(err error) func() ([]agentruntime.Event, error) {
	return func() ([]agentruntime.Event, error) { return nil, err }
}

func newTestActivities(t *testing.T, runtime agentruntime.Caller) *Activities {
	return NewActivities(runtime, nil, nil, zaptest.NewLogger(t)).
		WithRetryPolicy(3, time.Millisecond)
}

const goodResearchText = "RESEARCH_DATA: Jordan Reyes is VP Engineering at Example Corp, focused on CI tooling and developer experience."

func researchInput() ResearchLeadInput {
	return ResearchLeadInput{
		LeadName:    "Jordan Reyes",
		LeadEmail:   "jordan@example.com",
		CareerField: "developer tools",
	}
}

func TestResearchLeadFirstAttemptSucceeds(t *testing.T) {
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		textReply(goodResearchText),
	}}
	a := newTestActivities(t, runtime)

	res, err := a.ResearchLead(context.Background(), researchInput())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Contains(t, res.Research.NotableConnections, "Jordan Reyes is VP Engineering")
}

func TestResearchLeadRetriesIncompleteTurn(t *testing.T) {
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		toolOnlyReply(),
		toolOnlyReply(),
		textReply(goodResearchText),
	}}
	a := newTestActivities(t, runtime)

	res, err := a.ResearchLead(context.Background(), researchInput())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, runtime.calls)
}

func TestResearchLeadRetriesTransientRuntimeError(t *testing.T) {
	transient := &agentruntime.TransientError{Status: 503, Attempts: 5}
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		errorReply(transient),
		textReply(goodResearchText),
	}}
	a := newTestActivities(t, runtime)

	res, err := a.ResearchLead(context.Background(), researchInput())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
}

func TestResearchLeadRetriesInvalidResearch(t *testing.T) {
	// Parses fine but validates empty: all placeholders.
	degenerate := `{"name": "Unknown", "current_role": "N/A", "company": "Not found", "professional_background": []}`
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		textReply(degenerate),
		textReply(goodResearchText),
	}}
	a := newTestActivities(t, runtime)

	res, err := a.ResearchLead(context.Background(), researchInput())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
}

func TestResearchLeadParseErrorFailsFast(t *testing.T) {
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		textReply("ok"), // too short for any parse strategy
		textReply(goodResearchText),
	}}
	a := newTestActivities(t, runtime)

	_, err := a.ResearchLead(context.Background(), researchInput())
	require.Error(t, err)

	var parseErr *research.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, runtime.calls, "parse failures are bugs, not flakes; no retry")
}

func TestResearchLeadExhaustsRetryBudget(t *testing.T) {
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		toolOnlyReply(),
		toolOnlyReply(),
		toolOnlyReply(),
		textReply(goodResearchText), // never reached
	}}
	a := newTestActivities(t, runtime)

	_, err := a.ResearchLead(context.Background(), researchInput())
	require.Error(t, err)

	var maxErr *MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Attempts)
	assert.ErrorIs(t, maxErr, extraction.ErrIncompleteTurn, "terminal error wraps the last failure")
	assert.Equal(t, 3, runtime.calls, "exactly maxAttempts invocations")
}

func TestResearchLeadRespectsContextCancellation(t *testing.T) {
	runtime := &scriptedRuntime{replies: []func() ([]agentruntime.Event, error){
		toolOnlyReply(),
		toolOnlyReply(),
		toolOnlyReply(),
	}}
	a := NewActivities(runtime, nil, nil, zaptest.NewLogger(t)).
		WithRetryPolicy(3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := a.ResearchLead(ctx, researchInput())
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetriableClassification(t *testing.T) {
	assert.True(t, isRetriable(extraction.ErrIncompleteTurn))
	assert.True(t, isRetriable(research.ErrInvalidResearch))
	assert.True(t, isRetriable(&agentruntime.TransientError{Status: 503}))
	assert.False(t, isRetriable(&research.ParseError{Reason: "x"}))
	assert.False(t, isRetriable(errors.New("unexpected")))
}

func TestBuildResearchPromptFoldsContactHints(t *testing.T) {
	in := researchInput()
	in.ContactType = "warm introduction"
	in.ContactContext = map[string]interface{}{
		"met_at":          "GopherCon 2025",
		"mutual_interest": "CI tooling",
	}

	prompt := buildResearchPrompt(in)
	assert.Contains(t, prompt, "Contact type: warm introduction")
	assert.Contains(t, prompt, "What I already know about them:")
	assert.Contains(t, prompt, "- met_at: GopherCon 2025")
	assert.Contains(t, prompt, "- mutual_interest: CI tooling")

	bare := buildResearchPrompt(researchInput())
	assert.NotContains(t, bare, "Contact type:")
	assert.NotContains(t, bare, "What I already know")
}
