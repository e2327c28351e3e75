package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/agentruntime"
	"github.com/fionalabs/outreach-orchestrator/internal/db"
	"github.com/fionalabs/outreach-orchestrator/internal/extraction"
	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
)

// ErrNoEmailHeaders means the agent's reply did not carry the SUBJECT:/BODY:
// headers the draft prompt demands. Retriable: a fresh generation usually
// complies.
var ErrNoEmailHeaders = errors.New("draft reply has no SUBJECT:/BODY: headers")

// DraftEmail asks the agent for a personalized outreach email and parses the
// SUBJECT:/BODY: reply format.
func (a *Activities) DraftEmail(ctx context.Context, in DraftEmailInput) (DraftEmailResult, error) {
	events, err := a.runtime.Run(ctx, agentruntime.RunRequest{
		Prompt:    buildDraftPrompt(in),
		SessionID: in.SessionID,
	})
	if err != nil {
		return DraftEmailResult{}, err
	}

	text, err := extraction.FinalText(events)
	if err != nil {
		return DraftEmailResult{}, err
	}

	subject, body, err := ExtractEmail(text)
	if err != nil {
		return DraftEmailResult{}, err
	}

	a.logger.Info("Email draft generated",
		zap.String("lead", in.LeadName),
		zap.Int("attempt", in.Attempt),
		zap.Int("body_length", len(body)),
	)
	return DraftEmailResult{Subject: subject, Body: body, Attempt: in.Attempt}, nil
}

// ExtractEmail pulls the subject and body out of an agent reply formatted
// with SUBJECT:/BODY: headers. Everything after the BODY: header belongs to
// the body, including later lines that happen to start with "SUBJECT:".
func ExtractEmail(text string) (subject, body string, err error) {
	lines := strings.Split(text, "\n")
	bodyStart := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if bodyStart == -1 && strings.HasPrefix(trimmed, "SUBJECT:") {
			subject = strings.TrimSpace(strings.TrimPrefix(trimmed, "SUBJECT:"))
			continue
		}
		if strings.HasPrefix(trimmed, "BODY:") {
			first := strings.TrimSpace(strings.TrimPrefix(trimmed, "BODY:"))
			rest := strings.Join(lines[i+1:], "\n")
			body = strings.TrimSpace(first + "\n" + rest)
			bodyStart = i
			break
		}
	}
	if subject == "" || body == "" {
		return "", "", ErrNoEmailHeaders
	}
	return subject, body, nil
}

// DeliverEmail is the mock transport: it fabricates a message ID, archives
// the delivery, and reports success. Swapping in a real provider only means
// replacing this method body.
func (a *Activities) DeliverEmail(ctx context.Context, in DeliverEmailInput) (DeliverEmailResult, error) {
	id := uuid.New()
	messageID := fmt.Sprintf("MSG-%s", strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]))
	now := time.Now()

	a.logger.Info("Email delivered",
		zap.String("message_id", messageID),
		zap.String("recipient", in.Recipient),
		zap.String("subject", in.Subject),
		zap.Int("attempt", in.Attempt),
	)
	metrics.EmailsDelivered.Inc()

	if a.archive != nil {
		a.archive.ArchiveDelivery(&db.Delivery{
			ID:          uuid.New(),
			WorkflowID:  in.WorkflowID,
			MessageID:   messageID,
			LeadName:    in.LeadName,
			Recipient:   in.Recipient,
			Subject:     in.Subject,
			BodyLength:  len(in.Body),
			Attempt:     in.Attempt,
			DeliveredAt: now,
		})
	}

	return DeliverEmailResult{
		Status:     "delivered",
		MessageID:  messageID,
		Recipient:  in.Recipient,
		Timestamp:  now,
		BodyLength: len(in.Body),
	}, nil
}
