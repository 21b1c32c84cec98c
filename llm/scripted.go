// Scripted Provider - replays canned responses for tests and offline runs.
//
// Information Hiding:
// - Script cursor and request capture
// - Requests are copied so later mutation by the caller is not observed

package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned when a ScriptedProvider runs out of steps.
var ErrScriptExhausted = errors.New("scripted provider: no more responses")

// ScriptStep produces one response. Either Response or Err is used;
// Func, when set, takes precedence over both.
type ScriptStep struct {
	Response *Response
	Err      error
	Func     func(Request) (*Response, error)
}

// ScriptedProvider is a Provider that returns pre-programmed responses in order.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []ScriptStep
	requests []Request
}

// NewScriptedProvider creates a provider that replays steps in order.
func NewScriptedProvider(steps ...ScriptStep) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// Respond is shorthand for a step returning resp.
func Respond(resp *Response) ScriptStep {
	return ScriptStep{Response: resp}
}

// Fail is shorthand for a step returning err.
func Fail(err error) ScriptStep {
	return ScriptStep{Err: err}
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// Model returns the current model.
func (p *ScriptedProvider) Model() string {
	return "scripted"
}

// Complete returns the next scripted response.
func (p *ScriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.requests = append(p.requests, copyRequest(req))
	if len(p.steps) == 0 {
		p.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	p.mu.Unlock()

	if step.Func != nil {
		return step.Func(req)
	}
	return step.Response, step.Err
}

// Requests returns every request received so far.
func (p *ScriptedProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Calls returns the number of Complete invocations.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func copyRequest(req Request) Request {
	out := req
	out.Messages = make([]Message, len(req.Messages))
	for i, msg := range req.Messages {
		out.Messages[i] = Message{Role: msg.Role, Content: append([]ContentBlock(nil), msg.Content...)}
	}
	out.Tools = append([]ToolDefinition(nil), req.Tools...)
	return out
}

// Verify ScriptedProvider implements Provider
var _ Provider = (*ScriptedProvider)(nil)
