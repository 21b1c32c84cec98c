// Package llm provides the model-facing data model shared by all providers.
//
// Information Hiding:
// - Content blocks are a closed set; only this package can add variants
// - Provider wire formats never leak past the Provider interface
package llm

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is one piece of a message: TextBlock, ToolUseBlock or
// ToolResultBlock. The set is closed; switch on the concrete type.
type ContentBlock interface {
	isContentBlock()
}

// TextBlock is plain text authored by either side.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a tool invocation requested by the model.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResultBlock carries the outcome of one ToolUseBlock back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (TextBlock) isContentBlock()       {}
func (ToolUseBlock) isContentBlock()    {}
func (ToolResultBlock) isContentBlock() {}

// Message is one entry of a conversation.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// UserMessage creates a user message with a single text block.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock{Text: text}}}
}

// AssistantMessage creates an assistant message with a single text block.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock{Text: text}}}
}

// ToolUses returns the tool-use blocks of the message in order.
func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range m.Content {
		if use, ok := block.(ToolUseBlock); ok {
			uses = append(uses, use)
		}
	}
	return uses
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// StopReason is the normalized reason a model stopped generating.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopOther     StopReason = "other"
)

// Request is a single model invocation.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int64
}

// Response is the model's reply to a Request.
type Response struct {
	StopReason StopReason
	Content    []ContentBlock
	Usage      *TokenUsage
}

// FirstText returns the text of the first text block, if any.
func (r *Response) FirstText() (string, bool) {
	for _, block := range r.Content {
		if text, ok := block.(TextBlock); ok {
			return text.Text, true
		}
	}
	return "", false
}

// ToolUses returns the tool-use blocks of the response in order.
func (r *Response) ToolUses() []ToolUseBlock {
	return Message{Content: r.Content}.ToolUses()
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// requiredFields extracts the "required" list of a JSON schema, accepting
// both []string and the []any produced by encoding/json.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// objectInput returns input, or an empty JSON object when input is blank.
func objectInput(input json.RawMessage) json.RawMessage {
	if len(input) == 0 || string(input) == "null" {
		return json.RawMessage("{}")
	}
	return input
}
