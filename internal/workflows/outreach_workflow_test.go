package workflows

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/activities"
	"github.com/fionalabs/outreach-orchestrator/internal/constants"
	"github.com/fionalabs/outreach-orchestrator/internal/research"
)

func testInput() OutreachInput {
	return OutreachInput{
		LeadName:          "Jordan Reyes",
		LeadEmail:         "jordan@example.com",
		CareerField:       "developer tools",
		CareerDescription: "I build CI infrastructure for mid-size teams",
		SessionID:         "sess-1",
	}
}

func testResearch() research.Record {
	rec := research.DefaultRecord()
	rec.Name = "Jordan Reyes"
	rec.CurrentRole = "VP Engineering"
	rec.Company = "Example Corp"
	return rec
}

// registerActivities registers the real activity methods under their names so
// name-based mocks resolve. Mocks intercept every call; the nil dependencies
// are never touched.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	a := activities.NewActivities(nil, nil, nil, zap.NewNop())
	env.RegisterActivityWithOptions(a.ResearchLead, activity.RegisterOptions{Name: constants.ResearchLeadActivity})
	env.RegisterActivityWithOptions(a.DraftEmail, activity.RegisterOptions{Name: constants.DraftEmailActivity})
	env.RegisterActivityWithOptions(a.DeliverEmail, activity.RegisterOptions{Name: constants.DeliverEmailActivity})
	env.RegisterActivityWithOptions(a.RequestApproval, activity.RegisterOptions{Name: constants.RequestApprovalActivity})
	env.RegisterActivityWithOptions(a.SaveLeadMemory, activity.RegisterOptions{Name: constants.SaveLeadMemoryActivity})
	env.RegisterActivityWithOptions(a.RecallLeadMemory, activity.RegisterOptions{Name: constants.RecallLeadMemoryActivity})
	env.RegisterActivityWithOptions(a.UpdateSession, activity.RegisterOptions{Name: constants.UpdateSessionActivity})
}

type draftFn = func(ctx context.Context, in activities.DraftEmailInput) (activities.DraftEmailResult, error)
type researchFn = func(ctx context.Context, in activities.ResearchLeadInput) (activities.ResearchLeadResult, error)

func defaultDraft(ctx context.Context, in activities.DraftEmailInput) (activities.DraftEmailResult, error) {
	return activities.DraftEmailResult{
		Subject: fmt.Sprintf("Draft %d for %s", in.Attempt, in.LeadName),
		Body:    "Hi Jordan, saw your work on Example Corp's build platform...",
		Attempt: in.Attempt,
	}, nil
}

func defaultResearch(ctx context.Context, in activities.ResearchLeadInput) (activities.ResearchLeadResult, error) {
	return activities.ResearchLeadResult{Research: testResearch(), Attempts: 1}, nil
}

// mockBaseline mocks the activities every happy-path run touches.
// RequestApproval mints deterministic approval IDs (appr-1, appr-2, ...) so
// tests can signal the right channel.
func mockBaseline(env *testsuite.TestWorkflowEnvironment, deliverCalls *int) {
	mockPipeline(env, deliverCalls, defaultDraft, defaultResearch)
}

// mockPipeline is mockBaseline with the draft and research activities supplied
// by the test. Registering a second expectation for the same activity would be
// shadowed by the first, so customization happens here instead.
func mockPipeline(env *testsuite.TestWorkflowEnvironment, deliverCalls *int, draft draftFn, research researchFn) {
	registerActivities(env)
	env.OnActivity(constants.RecallLeadMemoryActivity, mock.Anything, mock.Anything).Return(
		activities.RecallLeadMemoryResult{}, nil,
	)
	env.OnActivity(constants.ResearchLeadActivity, mock.Anything, mock.Anything).Return(research)
	env.OnActivity(constants.DraftEmailActivity, mock.Anything, mock.Anything).Return(draft)
	env.OnActivity(constants.RequestApprovalActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in activities.ApprovalRequestInput) (activities.ApprovalRequest, error) {
			return activities.ApprovalRequest{
				ApprovalID:   fmt.Sprintf("appr-%d", in.Attempt),
				InvocationID: in.WorkflowID,
				LeadName:     in.LeadName,
				EmailSubject: in.EmailSubject,
				EmailBody:    in.EmailBody,
				Attempt:      in.Attempt,
				RequestedAt:  time.Now(),
			}, nil
		},
	)
	env.OnActivity(constants.DeliverEmailActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in activities.DeliverEmailInput) (activities.DeliverEmailResult, error) {
			*deliverCalls++
			return activities.DeliverEmailResult{
				Status:    "delivered",
				MessageID: "MSG-DEADBEEF",
				Recipient: in.Recipient,
				Timestamp: time.Now(),
			}, nil
		},
	)
	env.OnActivity(constants.SaveLeadMemoryActivity, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(constants.UpdateSessionActivity, mock.Anything, mock.Anything).Return(nil)
}

func signalDecision(env *testsuite.TestWorkflowEnvironment, delay time.Duration, approvalID string, confirmed bool, feedback string) {
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ApprovalSignalName(approvalID), activities.ApprovalDecision{
			ApprovalID: approvalID,
			Confirmed:  confirmed,
			Feedback:   feedback,
			DecidedBy:  "reviewer@example.com",
			Timestamp:  time.Now(),
		})
	}, delay)
}

func TestOutreachWorkflowApprovedFirstTry(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	mockBaseline(env, &deliverCalls)
	signalDecision(env, time.Minute, "appr-1", true, "")

	env.ExecuteWorkflow(OutreachWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result OutreachResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, StateApproved, result.State)
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, "MSG-DEADBEEF", result.MessageID)
	require.Equal(t, 1, deliverCalls, "approved email is delivered exactly once")
}

func TestOutreachWorkflowRejectionFeedsBackIntoRedraft(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	var secondDraft activities.DraftEmailInput
	mockPipeline(env, &deliverCalls, func(ctx context.Context, in activities.DraftEmailInput) (activities.DraftEmailResult, error) {
		if in.Attempt == 2 {
			secondDraft = in
		}
		return activities.DraftEmailResult{
			Subject: fmt.Sprintf("Draft %d", in.Attempt),
			Body:    "body",
			Attempt: in.Attempt,
		}, nil
	}, defaultResearch)

	signalDecision(env, time.Minute, "appr-1", false, "too generic, mention their open source work")
	signalDecision(env, 2*time.Minute, "appr-2", true, "")

	env.ExecuteWorkflow(OutreachWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result OutreachResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, StateApproved, result.State)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, "too generic, mention their open source work", secondDraft.Feedback)
	require.Equal(t, 1, deliverCalls)
}

func TestOutreachWorkflowExhaustsAfterThreeRejections(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	mockBaseline(env, &deliverCalls)
	signalDecision(env, time.Minute, "appr-1", false, "no")
	signalDecision(env, 2*time.Minute, "appr-2", false, "still no")
	signalDecision(env, 3*time.Minute, "appr-3", false, "final no")

	env.ExecuteWorkflow(OutreachWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result OutreachResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, StateExhausted, result.State)
	require.Equal(t, maxDraftAttempts, result.Attempts)
	require.Equal(t, "final no", result.LastFeedback)
	require.Equal(t, 0, deliverCalls, "no delivery without an approval")
}

func TestOutreachWorkflowApprovalTimeoutCountsAsRejection(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	mockBaseline(env, &deliverCalls)

	input := testInput()
	input.ApprovalTimeoutSeconds = 60
	env.ExecuteWorkflow(OutreachWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result OutreachResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, StateExhausted, result.State)
	require.Equal(t, "approval timed out", result.LastFeedback)
	require.Equal(t, 0, deliverCalls)
}

func TestOutreachWorkflowRetriesHeaderlessDraft(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	draftCalls := 0
	mockPipeline(env, &deliverCalls, func(ctx context.Context, in activities.DraftEmailInput) (activities.DraftEmailResult, error) {
		draftCalls++
		if draftCalls == 1 {
			return activities.DraftEmailResult{}, activities.ErrNoEmailHeaders
		}
		return activities.DraftEmailResult{
			Subject: "Recovered draft",
			Body:    "body",
			Attempt: in.Attempt,
		}, nil
	}, defaultResearch)
	signalDecision(env, time.Minute, "appr-1", true, "")

	env.ExecuteWorkflow(OutreachWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError(), "a headerless reply is retried, not terminal")

	var result OutreachResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, StateApproved, result.State)
	require.Equal(t, 2, draftCalls)
	require.Equal(t, 1, deliverCalls)
}

func TestOutreachWorkflowCarriesContactHintsToResearch(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	var researchInput activities.ResearchLeadInput
	mockPipeline(env, &deliverCalls, defaultDraft, func(ctx context.Context, in activities.ResearchLeadInput) (activities.ResearchLeadResult, error) {
		researchInput = in
		return activities.ResearchLeadResult{Research: testResearch(), Attempts: 1}, nil
	})
	signalDecision(env, time.Minute, "appr-1", true, "")

	input := testInput()
	input.ContactType = "warm introduction"
	input.ContactContext = map[string]interface{}{"met_at": "GopherCon 2025"}
	env.ExecuteWorkflow(OutreachWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, "warm introduction", researchInput.ContactType)
	require.Equal(t, "GopherCon 2025", researchInput.ContactContext["met_at"])
}

func TestOutreachWorkflowResearchFailureIsTerminal(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	registerActivities(env)
	env.OnActivity(constants.RecallLeadMemoryActivity, mock.Anything, mock.Anything).Return(
		activities.RecallLeadMemoryResult{}, nil,
	)
	env.OnActivity(constants.ResearchLeadActivity, mock.Anything, mock.Anything).Return(
		activities.ResearchLeadResult{}, fmt.Errorf("research failed after 3 attempts: incomplete turn"),
	)

	env.ExecuteWorkflow(OutreachWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestOutreachWorkflowPendingApprovalQuery(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	deliverCalls := 0
	mockBaseline(env, &deliverCalls)

	var pendingDuringWait *activities.ApprovalRequest
	env.RegisterDelayedCallback(func() {
		val, err := env.QueryWorkflow(QueryPendingApproval)
		require.NoError(t, err)
		require.NoError(t, val.Get(&pendingDuringWait))
		env.SignalWorkflow(ApprovalSignalName("appr-1"), activities.ApprovalDecision{
			ApprovalID: "appr-1",
			Confirmed:  true,
			Timestamp:  time.Now(),
		})
	}, time.Minute)

	env.ExecuteWorkflow(OutreachWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	require.NotNil(t, pendingDuringWait)
	require.Equal(t, "appr-1", pendingDuringWait.ApprovalID)
	require.Equal(t, "Jordan Reyes", pendingDuringWait.LeadName)

	// After completion the pending handle is cleared.
	val, err := env.QueryWorkflow(QueryPendingApproval)
	require.NoError(t, err)
	var pendingAfter *activities.ApprovalRequest
	require.NoError(t, val.Get(&pendingAfter))
	require.Nil(t, pendingAfter)
}
