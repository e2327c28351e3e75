// Package extraction turns the agent runtime's heterogeneous event sequence
// into a single string payload for downstream parsing.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fionalabs/outreach-orchestrator/internal/agentruntime"
)

// ErrIncompleteTurn signals that the agent only invoked a tool and produced
// no final answer. The turn is incomplete rather than failed; callers should
// retry.
var ErrIncompleteTurn = errors.New("agent executed tool but returned no final text")

// FinalText extracts the answer payload from an ordered event sequence.
//
// Priority order:
//  1. Structured tool output: the first function response whose result
//     carries a fenced JSON block, re-serialized as a compact JSON string.
//  2. The last non-empty text part (earlier parts are tool-call chatter).
//  3. No text but at least one function call: ErrIncompleteTurn.
//  4. Best-effort string rendering of the whole sequence.
//
// Pure function over its input; tracing is the caller's concern.
func FinalText(events []agentruntime.Event) (string, error) {
	if s, ok := jsonFromFunctionResponse(events); ok {
		return s, nil
	}

	sawFunctionCall := false
	for i := len(events) - 1; i >= 0; i-- {
		for _, part := range events[i].Parts {
			if part.Kind == agentruntime.PartFunctionCall {
				sawFunctionCall = true
			}
		}
	}

	for i := len(events) - 1; i >= 0; i-- {
		for _, part := range events[i].Parts {
			if part.Kind == agentruntime.PartText && strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}

	if sawFunctionCall {
		return "", ErrIncompleteTurn
	}

	return renderEvents(events), nil
}

// jsonFromFunctionResponse scans forward for a function response whose result
// string embeds a ```json fence. Structured tool output is more reliable than
// narrated text, so it wins over any later text part.
func jsonFromFunctionResponse(events []agentruntime.Event) (string, bool) {
	for _, ev := range events {
		for _, part := range ev.Parts {
			if part.Kind != agentruntime.PartFunctionResponse || part.Response == nil {
				continue
			}
			result, ok := part.Response.Payload["result"].(string)
			if !ok || !strings.HasPrefix(strings.TrimSpace(result), "```json") {
				continue
			}
			start := strings.Index(result, "{")
			end := strings.LastIndex(result, "}")
			if start == -1 || end <= start {
				continue
			}
			var decoded map[string]interface{}
			if err := json.Unmarshal([]byte(result[start:end+1]), &decoded); err != nil {
				continue
			}
			compact, err := json.Marshal(decoded)
			if err != nil {
				continue
			}
			return string(compact), true
		}
	}
	return "", false
}

// renderEvents is the non-fatal fallback: downstream parsing will almost
// certainly treat the result as invalid, but the raw dump aids diagnosis.
func renderEvents(events []agentruntime.Event) string {
	var b strings.Builder
	for i, ev := range events {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[Event(author=%s, parts=%d)]", ev.Author, len(ev.Parts))
	}
	return b.String()
}
