// Package mcp provides the Model Context Protocol client the agent uses to
// reach the portfolio capability provider.
//
// The provider exposes resources (read-only documents), tools (callable
// functions with a JSON schema) and prompt templates. This package wraps
// github.com/mark3labs/mcp-go and normalizes its results into the shapes
// the rest of the module works with.
//
// Information Hiding:
// - Transport selection and session handshake hidden behind Dialer
// - Connection state (Disconnected | Connected) hidden
// - MCP content types flattened to text

package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/llm"
)

// DefaultCallTimeout bounds every individual network exchange.
const DefaultCallTimeout = 30 * time.Second

const (
	clientName    = "portfolio-chat"
	clientVersion = "0.1.0"
)

var tracer = otel.Tracer("github.com/sahana359/sahanarajashekara/mcp")

// ResourceDescriptor identifies one resource offered by the provider.
type ResourceDescriptor struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// Key returns the last path segment of the URI, used as the corpus key.
func (r ResourceDescriptor) Key() string {
	return ResourceKey(r.URI)
}

// ResourceKey returns the last path segment of uri
// ("portfolio://projects" becomes "projects").
func ResourceKey(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// ToolResult is the flattened text output of a tool call.
type ToolResult struct {
	Text string `json:"text"`
}

// PromptDescriptor describes a prompt template offered by the provider.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument is one parameter of a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Client holds at most one live session to a capability provider.
//
// A Client must not be shared between concurrent agent runs; create one
// per run. Calls made while connected may run concurrently.
type Client struct {
	dial        Dialer
	logger      *slog.Logger
	callTimeout time.Duration

	mu      sync.RWMutex
	session *mcpclient.Client
	cancel  context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// NewClient creates a disconnected client that opens sessions with dial.
func NewClient(dial Dialer, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		dial:        dial,
		logger:      logger,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connected reports whether a session is open.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// Connect opens a session and performs the initialize handshake. It is a
// no-op when already connected. On failure the client stays disconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "mcp.connect")
	defer span.End()

	session, err := c.dial()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("create mcp client: %w", err)
	}

	// The session outlives this call, so the transport gets a context that
	// only Disconnect cancels.
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := c.start(ctx, sessionCtx, session); err != nil {
		cancel()
		_ = session.Close()
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.session = session
	c.cancel = cancel
	c.logger.Debug("mcp.connected")
	return nil
}

func (c *Client) start(ctx, sessionCtx context.Context, session *mcpclient.Client) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	started := make(chan error, 1)
	go func() { started <- session.Start(sessionCtx) }()

	select {
	case err := <-started:
		if err != nil {
			return fmt.Errorf("start mcp transport: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("start mcp transport: %w", ctx.Err())
	}

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{Name: clientName, Version: clientVersion}

	result, err := session.Initialize(ctx, req)
	if err != nil {
		return fmt.Errorf("initialize mcp session: %w", err)
	}
	c.logger.Debug("mcp.initialized",
		"server", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
		"protocol", result.ProtocolVersion,
	)
	return nil
}

// Disconnect closes the session. It is a no-op when not connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.cancel()
	c.session = nil
	c.cancel = nil
	if err != nil {
		return fmt.Errorf("close mcp session: %w", err)
	}
	c.logger.Debug("mcp.disconnected")
	return nil
}

// WithSession connects, runs fn and always disconnects afterwards, including
// when fn fails or panics.
func (c *Client) WithSession(ctx context.Context, fn func(context.Context) error) (err error) {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := c.Disconnect(); derr != nil && err == nil {
			err = derr
		}
	}()
	return fn(ctx)
}

func (c *Client) current() (*mcpclient.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// ListResources returns the provider's resource catalog.
func (c *Client) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := session.ListResources(ctx, mcpgo.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	out := make([]ResourceDescriptor, 0, len(result.Resources))
	for _, r := range result.Resources {
		out = append(out, ResourceDescriptor{URI: r.URI, Name: r.Name})
	}
	return out, nil
}

// FetchResources reads every resource into a corpus snapshot. A resource
// that cannot be read is logged and left out; only a failure to list the
// catalog fails the fetch.
func (c *Client) FetchResources(ctx context.Context) (*corpus.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "mcp.fetch_resources")
	defer span.End()

	resources, err := c.ListResources(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	session, err := c.current()
	if err != nil {
		return nil, err
	}

	docs := make(map[string]any, len(resources))
	for _, r := range resources {
		text, err := c.readResource(ctx, session, r.URI)
		if err != nil {
			loadErr := &ResourceLoadError{URI: r.URI, Err: err}
			c.logger.Warn("mcp.resource_skipped", "uri", r.URI, "error", loadErr)
			continue
		}
		docs[r.Key()] = corpus.Decode(text)
	}

	span.SetAttributes(attribute.Int("mcp.resources", len(docs)))
	return corpus.New(docs, corpus.SourceMCP), nil
}

func (c *Client) readResource(ctx context.Context, session *mcpclient.Client, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req := mcpgo.ReadResourceRequest{}
	req.Params.URI = uri
	result, err := session.ReadResource(ctx, req)
	if err != nil {
		return "", err
	}

	var text, blob string
	found, foundBlob := false, false
	for _, content := range result.Contents {
		switch v := content.(type) {
		case mcpgo.TextResourceContents:
			text, found = v.Text, true
		case *mcpgo.TextResourceContents:
			text, found = v.Text, true
		case mcpgo.BlobResourceContents:
			blob, foundBlob = v.Blob, true
		case *mcpgo.BlobResourceContents:
			blob, foundBlob = v.Blob, true
		}
	}
	switch {
	case found:
		return text, nil
	case foundBlob:
		return blobText(blob), nil
	default:
		return "", errors.New("resource has no content")
	}
}

// blobText decodes a base64 blob. Decoded bytes that are not UTF-8 text
// are kept as the encoded string.
func blobText(blob string) string {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || !utf8.Valid(raw) {
		return blob
	}
	return string(raw)
}

// ListTools returns the provider's tools as model tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]llm.ToolDefinition, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := session.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	out := make([]llm.ToolDefinition, 0, len(result.Tools))
	for _, t := range result.Tools {
		out = append(out, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: toolSchema(t),
		})
	}
	return out, nil
}

// CallTool invokes a tool. The error, when non-nil, is a *ToolInvocationError.
func (c *Client) CallTool(ctx context.Context, name string, input json.RawMessage) (*ToolResult, error) {
	ctx, span := tracer.Start(ctx, "mcp.call_tool")
	defer span.End()
	span.SetAttributes(attribute.String("mcp.tool", name))

	fail := func(err error) (*ToolResult, error) {
		span.SetStatus(codes.Error, err.Error())
		return nil, &ToolInvocationError{Tool: name, Err: err}
	}

	session, err := c.current()
	if err != nil {
		return fail(err)
	}

	var args map[string]any
	if len(input) > 0 && string(input) != "null" {
		if err := json.Unmarshal(input, &args); err != nil {
			return fail(fmt.Errorf("decode tool input: %w", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	start := time.Now()
	result, err := session.CallTool(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fail(fmt.Errorf("timeout after %s: %w", c.callTimeout, err))
		}
		return fail(err)
	}

	text := extractTextContent(result.Content)
	c.logger.Debug("mcp.tool_called", "tool", name, "duration", time.Since(start), "is_error", result.IsError)

	if result.IsError {
		return fail(&ProviderError{Message: text})
	}
	return &ToolResult{Text: text}, nil
}

// ListPrompts returns the provider's prompt templates.
func (c *Client) ListPrompts(ctx context.Context) ([]PromptDescriptor, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := session.ListPrompts(ctx, mcpgo.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}

	out := make([]PromptDescriptor, 0, len(result.Prompts))
	for _, p := range result.Prompts {
		desc := PromptDescriptor{Name: p.Name, Description: p.Description}
		for _, a := range p.Arguments {
			desc.Arguments = append(desc.Arguments, PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		out = append(out, desc)
	}
	return out, nil
}

// GetPrompt renders a prompt template and returns the text of its messages.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (string, error) {
	session, err := c.current()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req := mcpgo.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := session.GetPrompt(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get prompt %s: %w", name, err)
	}

	contents := make([]mcpgo.Content, 0, len(result.Messages))
	for _, m := range result.Messages {
		contents = append(contents, m.Content)
	}
	return extractTextContent(contents), nil
}

// toolSchema converts an MCP tool's input schema to a JSON schema map.
// The schema type defaults to "object".
func toolSchema(tool mcpgo.Tool) map[string]any {
	if len(tool.RawInputSchema) > 0 {
		var m map[string]any
		if err := json.Unmarshal(tool.RawInputSchema, &m); err == nil {
			if _, ok := m["type"]; !ok {
				m["type"] = "object"
			}
			return m
		}
	}

	schema := tool.InputSchema
	m := map[string]any{"type": schema.Type}
	if schema.Type == "" {
		m["type"] = "object"
	}
	if schema.Properties != nil {
		m["properties"] = schema.Properties
	} else {
		m["properties"] = map[string]any{}
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

// extractTextContent concatenates all text content.
func extractTextContent(content []mcpgo.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
