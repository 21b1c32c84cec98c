// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
// - Tool results are sent as tool-role messages

package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI and
// OpenAI-compatible endpoints.
type OpenAIProvider struct {
	client      *openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		name:        "openai",
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// NewOpenAICompatibleProvider creates a provider for any endpoint speaking
// the OpenAI Chat Completions protocol.
func NewOpenAICompatibleProvider(name, baseURL, apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		name:        name,
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete sends a chat completion request with optional tool definitions.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int(req.MaxTokens)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(req.System, req.Messages),
		MaxTokens:   maxTokens,
		Temperature: p.temperature,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toOpenAITools(req.Tools)
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", p.name, err)
	}

	out := &Response{
		StopReason: StopOther,
		Usage: &TokenUsage{
			PromptTokens:     uint32(resp.Usage.PromptTokens),
			CompletionTokens: uint32(resp.Usage.CompletionTokens),
			TotalTokens:      uint32(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]
	out.StopReason = fromOpenAIFinishReason(choice.FinishReason)
	if choice.Message.Content != "" {
		out.Content = append(out.Content, TextBlock{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		out.Content = append(out.Content, ToolUseBlock{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: objectInput([]byte(tc.Function.Arguments)),
		})
	}
	if len(choice.Message.ToolCalls) > 0 {
		out.StopReason = StopToolUse
	}

	return out, nil
}

func fromOpenAIFinishReason(reason openai.FinishReason) StopReason {
	switch reason {
	case openai.FinishReasonStop:
		return StopEnd
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return StopToolUse
	case openai.FinishReasonLength:
		return StopMaxTokens
	default:
		return StopOther
	}
}

// toOpenAIMessages converts the conversation to chat completion messages.
// Tool results become tool-role messages that directly follow the
// assistant message that requested them.
func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		var text []string
		var toolCalls []openai.ToolCall
		var toolResults []openai.ChatCompletionMessage

		for _, block := range msg.Content {
			switch b := block.(type) {
			case TextBlock:
				text = append(text, b.Text)
			case ToolUseBlock:
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   b.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.Name,
						Arguments: string(objectInput(b.Input)),
					},
				})
			case ToolResultBlock:
				toolResults = append(toolResults, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.Content,
					ToolCallID: b.ToolUseID,
				})
			}
		}

		if msg.Role == RoleAssistant {
			result = append(result, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   strings.Join(text, "\n"),
				ToolCalls: toolCalls,
			})
			continue
		}

		result = append(result, toolResults...)
		if len(text) > 0 {
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: strings.Join(text, "\n"),
			})
		}
	}
	return result
}

// toOpenAITools converts tool definitions to OpenAI format.
func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
