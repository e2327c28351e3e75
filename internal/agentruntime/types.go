// Package agentruntime is the client for the external LLM agent runtime.
// It submits a prompt plus a declared tool set and returns the runtime's
// ordered event sequence, with each event part decoded into exactly one
// variant at this boundary so downstream code never re-probes shapes.
package agentruntime

import (
	"encoding/json"
	"fmt"
)

// PartKind discriminates the three event part variants.
type PartKind int

const (
	PartText PartKind = iota
	PartFunctionCall
	PartFunctionResponse
)

func (k PartKind) String() string {
	switch k {
	case PartText:
		return "text"
	case PartFunctionCall:
		return "function_call"
	case PartFunctionResponse:
		return "function_response"
	default:
		return "unknown"
	}
}

// FunctionCall is a tool invocation request emitted by the agent.
type FunctionCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// FunctionResponse is a tool invocation result fed back to the agent.
type FunctionResponse struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Payload map[string]interface{} `json:"response,omitempty"`
}

// Part is the smallest unit within an event: plain text, a tool invocation
// request, or a tool invocation result. Exactly one variant is set.
type Part struct {
	Kind     PartKind
	Text     string
	Call     *FunctionCall
	Response *FunctionResponse
}

type partWire struct {
	Text             *string           `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// UnmarshalJSON decides the part variant once, at decode time.
func (p *Part) UnmarshalJSON(data []byte) error {
	var w partWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.FunctionResponse != nil:
		*p = Part{Kind: PartFunctionResponse, Response: w.FunctionResponse}
	case w.FunctionCall != nil:
		*p = Part{Kind: PartFunctionCall, Call: w.FunctionCall}
	case w.Text != nil:
		*p = Part{Kind: PartText, Text: *w.Text}
	default:
		return fmt.Errorf("event part carries no recognized variant")
	}
	return nil
}

// MarshalJSON emits the wire shape of whichever variant is set.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PartText:
		return json.Marshal(partWire{Text: &p.Text})
	case PartFunctionCall:
		return json.Marshal(partWire{FunctionCall: p.Call})
	case PartFunctionResponse:
		return json.Marshal(partWire{FunctionResponse: p.Response})
	default:
		return nil, fmt.Errorf("event part has unknown kind %d", p.Kind)
	}
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// Event is one turn-level unit emitted by the runtime.
type Event struct {
	InvocationID string `json:"invocation_id"`
	Author       string `json:"author"`
	Parts        []Part `json:"parts"`
}
