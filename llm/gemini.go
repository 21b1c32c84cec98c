// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Function responses are keyed by tool name, not call ID

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // returned on first use
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	p := &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
	if err != nil {
		p.client = nil
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Complete sends a GenerateContent request with optional tool definitions.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}
	if p.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: maxTokens,
		Tools:           convertToGeminiTools(req.Tools),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, convertToGeminiContents(req.Messages), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	out := &Response{StopReason: StopOther}
	if len(response.Candidates) > 0 {
		candidate := response.Candidates[0]
		out.StopReason = fromGeminiFinishReason(candidate.FinishReason)
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					out.Content = append(out.Content, TextBlock{Text: part.Text})
				}
				if part.FunctionCall != nil {
					args, _ := json.Marshal(part.FunctionCall.Args)
					id := part.FunctionCall.ID
					if id == "" {
						id = part.FunctionCall.Name
					}
					out.Content = append(out.Content, ToolUseBlock{
						ID:    id,
						Name:  part.FunctionCall.Name,
						Input: objectInput(args),
					})
				}
			}
		}
	}
	// Gemini reports STOP even when it emits function calls.
	if len(out.ToolUses()) > 0 {
		out.StopReason = StopToolUse
	}

	if response.UsageMetadata != nil {
		out.Usage = &TokenUsage{
			PromptTokens:     uint32(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(response.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}

func fromGeminiFinishReason(reason genai.FinishReason) StopReason {
	switch reason {
	case genai.FinishReasonStop:
		return StopEnd
	case genai.FinishReasonMaxTokens:
		return StopMaxTokens
	default:
		return StopOther
	}
}

// convertToGeminiContents converts the conversation to Gemini contents.
func convertToGeminiContents(messages []Message) []*genai.Content {
	toolNames := make(map[string]string)
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		content := &genai.Content{Role: role}

		for _, block := range msg.Content {
			switch b := block.(type) {
			case TextBlock:
				content.Parts = append(content.Parts, &genai.Part{Text: b.Text})
			case ToolUseBlock:
				toolNames[b.ID] = b.Name
				var args map[string]any
				_ = json.Unmarshal(objectInput(b.Input), &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: b.ID, Name: b.Name, Args: args},
				})
			case ToolResultBlock:
				var result map[string]any
				_ = json.Unmarshal([]byte(b.Content), &result)
				if result == nil {
					result = map[string]any{"result": b.Content}
				}
				name := toolNames[b.ToolUseID]
				if name == "" {
					name = b.ToolUseID
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{ID: b.ToolUseID, Name: name, Response: result},
				})
			}
		}
		contents = append(contents, content)
	}

	return contents
}

// convertToGeminiTools converts tool definitions to Gemini format.
func convertToGeminiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t.InputSchema),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema converts a JSON schema object to Gemini format.
func convertToGeminiSchema(params map[string]any) *genai.Schema {
	schema := convertPropertyToGeminiSchema(params)
	if schema.Type == "" || schema.Type == genai.TypeUnspecified {
		schema.Type = genai.TypeObject
	}
	schema.Required = requiredFields(params)
	return schema
}

// convertPropertyToGeminiSchema converts a single property to Gemini schema.
// Arrays always get an items schema; Gemini rejects arrays without one.
func convertPropertyToGeminiSchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := prop["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}

	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = convertPropertyToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}

	if props, ok := prop["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pMap, ok := p.(map[string]any); ok {
				schema.Properties[name] = convertPropertyToGeminiSchema(pMap)
			}
		}
	}

	return schema
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
