// Package agent runs the tool-calling loop that answers one visitor message.
//
// Contains the types exchanged with callers: inbound history, run results
// and errors.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sahana359/sahanarajashekara/llm"
)

// Fixed replies returned without model text.
const (
	// ExhaustedReply is returned when the turn budget runs out.
	ExhaustedReply = "I'm sorry, I couldn't finish answering that. Could you try rephrasing your question?"

	// NoAnswerReply is returned when the model ends without any text.
	NoAnswerReply = "I'm sorry, I don't have an answer for that."
)

// TruncationMarker is appended to messages cut at MaxInputChars.
const TruncationMarker = " [message truncated]"

// HistoryEntry is one prior message as sent by a client.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts any JSON value for content. Non-string content is
// kept as its JSON text.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	h.Role = aux.Role
	h.Content = ""
	if len(aux.Content) == 0 || string(aux.Content) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Content, &s); err == nil {
		h.Content = s
		return nil
	}
	h.Content = string(aux.Content)
	return nil
}

// role maps the entry's role to a model role. Missing or unknown roles
// become user.
func (h HistoryEntry) role() llm.Role {
	if strings.EqualFold(strings.TrimSpace(h.Role), string(llm.RoleAssistant)) {
		return llm.RoleAssistant
	}
	return llm.RoleUser
}

// Sanitize caps s at limit characters. Longer input is cut and
// TruncationMarker appended; it is never rejected.
func Sanitize(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}

// ToolCall contains metadata about a tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// ResponseType indicates how a run ended.
type ResponseType int

const (
	// ResponseAnswer means the model produced a final answer.
	ResponseAnswer ResponseType = iota
	// ResponseExhausted means the turn budget ran out.
	ResponseExhausted
	// ResponseBlocked means the input guard refused the message.
	ResponseBlocked
)

func (t ResponseType) String() string {
	switch t {
	case ResponseAnswer:
		return "answer"
	case ResponseExhausted:
		return "exhausted"
	case ResponseBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Metadata contains metadata about a run.
type Metadata struct {
	ExecutionTimeMs uint64
	ModelCalls      int
	ToolCalls       []ToolCall
	TokenUsage      llm.TokenUsage
	GuardMatches    []string
}

// Response is the outcome of a run.
type Response struct {
	Type     ResponseType
	Text     string
	Metadata Metadata
}

// ModelCallError reports a failed model invocation.
type ModelCallError struct {
	Turn int
	Err  error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed on turn %d: %v", e.Turn, e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}
