// Tool-calling loop implementation.
//
// One call to Run answers one visitor message: the model is called with the
// grounded system prompt, any tool requests are dispatched to the
// capability provider over a session opened for that turn, and the loop
// repeats until the model answers or the turn budget is spent.
//
// Information Hiding:
// - Conversation construction and growth hidden
// - Session lifecycle per tool turn hidden
// - Tool dispatch concurrency hidden

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sahana359/sahanarajashekara/llm"
	"github.com/sahana359/sahanarajashekara/mcp"
	"github.com/sahana359/sahanarajashekara/prompt"
)

var tracer = otel.Tracer("github.com/sahana359/sahanarajashekara/agent")

// Agent answers questions about the portfolio owner.
// An Agent is safe for concurrent use; every run has its own conversation
// and its own provider sessions.
type Agent struct {
	config Config
	guard  *InputGuard
	logger *slog.Logger
}

// New creates an agent. Zero-valued Config fields get defaults.
func New(config Config) *Agent {
	config = config.withDefaults()
	return &Agent{
		config: config,
		guard:  NewInputGuard(),
		logger: config.Logger,
	}
}

// Config returns the effective configuration.
func (a *Agent) Config() Config {
	return a.config
}

// Run answers message given the prior history and returns the reply text.
func (a *Agent) Run(ctx context.Context, message string, history []HistoryEntry) (string, error) {
	resp, err := a.Execute(ctx, message, history)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Execute is Run with run metadata.
//
// Errors are *ModelCallError when the model cannot be reached and
// *mcp.ToolInvocationError when a tool session cannot be opened. An
// exhausted turn budget is not an error; it yields ExhaustedReply.
func (a *Agent) Execute(ctx context.Context, message string, history []HistoryEntry) (Response, error) {
	startTime := time.Now()
	ctx, span := tracer.Start(ctx, "agent.run")
	defer span.End()

	resp, err := a.execute(ctx, message, history)
	resp.Metadata.ExecutionTimeMs = uint64(time.Since(startTime).Milliseconds())

	span.SetAttributes(
		attribute.String("agent.outcome", resp.Type.String()),
		attribute.Int("agent.model_calls", resp.Metadata.ModelCalls),
		attribute.Int("agent.tool_calls", len(resp.Metadata.ToolCalls)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (a *Agent) execute(ctx context.Context, message string, history []HistoryEntry) (Response, error) {
	var resp Response

	message = Sanitize(message, a.config.MaxInputChars)
	if blocked := a.screen(message, &resp); blocked {
		return resp, nil
	}

	conversation := a.initialConversation(message, history)

	var tools []llm.ToolDefinition
	if a.config.HasTools() {
		tools = a.config.Tools
	}

	for turn := 1; turn <= a.config.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return resp, fmt.Errorf("run cancelled: %w", err)
		}

		reply, err := a.callModel(ctx, turn, conversation, tools)
		resp.Metadata.ModelCalls++
		if err != nil {
			return resp, &ModelCallError{Turn: turn, Err: err}
		}
		if reply.Usage != nil {
			resp.Metadata.TokenUsage.PromptTokens += reply.Usage.PromptTokens
			resp.Metadata.TokenUsage.CompletionTokens += reply.Usage.CompletionTokens
			resp.Metadata.TokenUsage.TotalTokens += reply.Usage.TotalTokens
		}

		uses := reply.ToolUses()
		if reply.StopReason != llm.StopToolUse || len(uses) == 0 {
			resp.Type = ResponseAnswer
			text, ok := reply.FirstText()
			if !ok {
				a.logger.Warn("agent.no_text", "turn", turn, "stop_reason", reply.StopReason)
				text = NoAnswerReply
			}
			resp.Text = text
			return resp, nil
		}

		conversation = append(conversation, llm.Message{Role: llm.RoleAssistant, Content: reply.Content})

		results, calls, err := a.dispatch(ctx, uses)
		resp.Metadata.ToolCalls = append(resp.Metadata.ToolCalls, calls...)
		if err != nil {
			return resp, err
		}
		conversation = append(conversation, llm.Message{Role: llm.RoleUser, Content: results})
	}

	a.logger.Warn("agent.turns_exhausted", "max_turns", a.config.MaxTurns)
	resp.Type = ResponseExhausted
	resp.Text = ExhaustedReply
	return resp, nil
}

// screen runs the input guard. It returns true when the message must not
// reach the model.
func (a *Agent) screen(message string, resp *Response) bool {
	mode := ParseGuardMode(string(a.config.Guard))
	if mode == GuardOff {
		return false
	}
	matches := a.guard.Scan(message)
	if len(matches) == 0 {
		return false
	}
	resp.Metadata.GuardMatches = matches

	switch mode {
	case GuardLog:
		a.logger.Info("security.injection_detected", "patterns", matches)
	case GuardBlock:
		a.logger.Warn("security.injection_blocked", "patterns", matches)
		resp.Type = ResponseBlocked
		resp.Text = prompt.RedirectReply
		return true
	default:
		a.logger.Warn("security.injection_detected", "patterns", matches)
	}
	return false
}

func (a *Agent) initialConversation(message string, history []HistoryEntry) []llm.Message {
	conversation := make([]llm.Message, 0, len(history)+1)
	for _, h := range history {
		content := Sanitize(h.Content, a.config.MaxInputChars)
		if content == "" {
			continue
		}
		conversation = append(conversation, llm.Message{
			Role:    h.role(),
			Content: []llm.ContentBlock{llm.TextBlock{Text: content}},
		})
	}
	return append(conversation, llm.UserMessage(message))
}

func (a *Agent) callModel(ctx context.Context, turn int, conversation []llm.Message, tools []llm.ToolDefinition) (*llm.Response, error) {
	ctx, span := tracer.Start(ctx, "agent.model_call")
	defer span.End()
	span.SetAttributes(
		attribute.Int("agent.turn", turn),
		attribute.String("llm.provider", a.config.Provider.Name()),
		attribute.String("llm.model", a.config.Provider.Model()),
	)

	req := llm.Request{
		System:    prompt.BuildSystem(a.config.Corpus, a.config.Now(), prompt.Options{Owner: a.config.Owner}),
		Messages:  conversation,
		Tools:     tools,
		MaxTokens: a.config.MaxTokens,
	}

	start := time.Now()
	reply, err := a.config.Provider.Complete(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("agent.model_call_failed", "turn", turn, "error", err)
		return nil, err
	}
	if reply == nil {
		err := errors.New("provider returned no response")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("llm.stop_reason", string(reply.StopReason)))
	a.logger.Debug("agent.model_call",
		"turn", turn,
		"stop_reason", reply.StopReason,
		"tool_uses", len(reply.ToolUses()),
		"duration", time.Since(start),
	)
	return reply, nil
}

// dispatch runs every tool use of one turn over a single session and
// returns exactly one result block per use, in the order of uses.
func (a *Agent) dispatch(ctx context.Context, uses []llm.ToolUseBlock) ([]llm.ContentBlock, []ToolCall, error) {
	ctx, span := tracer.Start(ctx, "agent.dispatch_tools")
	defer span.End()
	span.SetAttributes(attribute.Int("agent.tool_uses", len(uses)))

	results := make([]llm.ContentBlock, len(uses))
	calls := make([]ToolCall, len(uses))

	if a.config.Sessions == nil {
		for i, use := range uses {
			results[i] = errorResult(use.ID, "tool access is not available")
			calls[i] = ToolCall{Name: use.Name, InputSize: len(use.Input)}
		}
		return results, calls, nil
	}

	session := a.config.Sessions()
	if err := session.Connect(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("agent.session_connect_failed", "error", err)
		return nil, nil, &mcp.ToolInvocationError{
			Tool: uses[0].Name,
			Err:  fmt.Errorf("connect to capability provider: %w", err),
		}
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			a.logger.Warn("agent.session_disconnect_failed", "error", err)
		}
	}()

	var g errgroup.Group
	g.SetLimit(a.config.MaxParallelTools)
	for i, use := range uses {
		g.Go(func() error {
			start := time.Now()
			result, err := session.CallTool(ctx, use.Name, use.Input)
			calls[i] = ToolCall{
				Name:       use.Name,
				InputSize:  len(use.Input),
				DurationMs: uint64(time.Since(start).Milliseconds()),
				Success:    err == nil,
			}
			if err != nil {
				a.logger.Warn("agent.tool_failed", "tool", use.Name, "tool_use_id", use.ID, "error", err)
				results[i] = errorResult(use.ID, err.Error())
				return nil
			}
			calls[i].OutputSize = len(result.Text)
			a.logger.Info("agent.tool_called", "tool", use.Name, "tool_use_id", use.ID, "duration", time.Since(start))
			results[i] = llm.ToolResultBlock{ToolUseID: use.ID, Content: result.Text}
			return nil
		})
	}
	_ = g.Wait()

	return results, calls, nil
}

func errorResult(toolUseID, message string) llm.ToolResultBlock {
	content, _ := json.Marshal(map[string]string{"error": message})
	return llm.ToolResultBlock{ToolUseID: toolUseID, Content: string(content), IsError: true}
}
