package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/portfolio"
)

func testSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	snap, err := corpus.LoadDir("../data", nil)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	return snap
}

func connectedClient(t *testing.T, snap *corpus.Snapshot) *Client {
	t.Helper()
	c := NewClient(InProcessDialer(portfolio.NewServer(snap, portfolio.Options{})), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func TestConnectIsIdempotent(t *testing.T) {
	c := connectedClient(t, testSnapshot(t))

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if !c.Connected() {
		t.Fatal("expected client to be connected")
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if c.Connected() {
		t.Error("expected client to be disconnected")
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("disconnect while disconnected should be a no-op, got %v", err)
	}
}

func TestFetchResources(t *testing.T) {
	c := connectedClient(t, testSnapshot(t))

	snap, err := c.FetchResources(context.Background())
	if err != nil {
		t.Fatalf("FetchResources: %v", err)
	}
	if snap.Source() != corpus.SourceMCP {
		t.Errorf("expected mcp source, got %q", snap.Source())
	}
	if snap.Len() != len(portfolio.ResourceKeys) {
		t.Errorf("expected %d resources, got %d: %v", len(portfolio.ResourceKeys), snap.Len(), snap.Keys())
	}

	projects, ok := snap.Get(corpus.KeyProjects)
	if !ok {
		t.Fatal("expected projects resource")
	}
	if _, ok := projects.(map[string]any); !ok {
		t.Errorf("expected projects to decode as JSON object, got %T", projects)
	}
}

func TestFetchResourcesSkipsFailures(t *testing.T) {
	full := testSnapshot(t)
	docs := make(map[string]any)
	for _, key := range full.Keys() {
		if key == corpus.KeyAdventures {
			continue
		}
		doc, _ := full.Get(key)
		docs[key] = doc
	}

	c := connectedClient(t, corpus.New(docs, corpus.SourceStatic))
	snap, err := c.FetchResources(context.Background())
	if err != nil {
		t.Fatalf("FetchResources: %v", err)
	}
	if _, ok := snap.Get(corpus.KeyAdventures); ok {
		t.Error("expected unreadable resource to be absent")
	}
	if _, ok := snap.Get(corpus.KeyJackie); !ok {
		t.Error("expected other resources to load")
	}
}

func TestFetchResourcesRequiresSession(t *testing.T) {
	c := NewClient(InProcessDialer(portfolio.NewServer(corpus.Empty(), portfolio.Options{})), nil)
	if _, err := c.FetchResources(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestListTools(t *testing.T) {
	c := connectedClient(t, testSnapshot(t))

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	byName := make(map[string]map[string]any)
	for _, tool := range tools {
		byName[tool.Name] = tool.InputSchema
		if tool.Description == "" {
			t.Errorf("tool %s has no description", tool.Name)
		}
	}
	for _, name := range []string{"search_projects", "get_experience_by_company", "get_skills_by_category",
		"get_certificate_by_name", "get_jackie_facts"} {
		schema, ok := byName[name]
		if !ok {
			t.Errorf("missing tool %s", name)
			continue
		}
		if schema["type"] != "object" {
			t.Errorf("tool %s: expected object schema, got %v", name, schema["type"])
		}
	}

	raw, _ := json.Marshal(byName["search_projects"])
	if !strings.Contains(string(raw), `"query"`) {
		t.Errorf("expected query property in schema, got %s", raw)
	}
}

func TestCallTool(t *testing.T) {
	c := connectedClient(t, testSnapshot(t))

	result, err := c.CallTool(context.Background(), "search_projects", json.RawMessage(`{"query":"portfolio"}`))
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.Contains(result.Text, "Portfolio Site") {
		t.Errorf("expected Portfolio Site in result, got %q", result.Text)
	}
}

func TestCallToolErrors(t *testing.T) {
	snap := testSnapshot(t)

	disconnected := NewClient(InProcessDialer(portfolio.NewServer(snap, portfolio.Options{})), nil)
	_, err := disconnected.CallTool(context.Background(), "get_jackie_facts", nil)
	var invErr *ToolInvocationError
	if !errors.As(err, &invErr) || !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ToolInvocationError wrapping ErrNotConnected, got %v", err)
	}

	c := connectedClient(t, snap)

	_, err = c.CallTool(context.Background(), "no_such_tool", json.RawMessage(`{}`))
	if !errors.As(err, &invErr) || invErr.Tool != "no_such_tool" {
		t.Errorf("expected ToolInvocationError for unknown tool, got %v", err)
	}

	_, err = c.CallTool(context.Background(), "search_projects", json.RawMessage(`{}`))
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("expected ProviderError for isError result, got %v", err)
	}
}

func TestPromptsRoundTrip(t *testing.T) {
	c := connectedClient(t, testSnapshot(t))

	prompts, err := c.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(prompts) != 3 {
		t.Errorf("expected 3 prompts, got %d", len(prompts))
	}

	text, err := c.GetPrompt(context.Background(), portfolio.PromptDeepDive,
		map[string]string{portfolio.ArgProjectName: "Portfolio"})
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if !strings.Contains(text, "Name: Portfolio Site") {
		t.Errorf("unexpected prompt text: %q", text)
	}
}

func TestWithSessionAlwaysDisconnects(t *testing.T) {
	c := NewClient(InProcessDialer(portfolio.NewServer(testSnapshot(t), portfolio.Options{})), nil)
	boom := errors.New("boom")

	err := c.WithSession(context.Background(), func(ctx context.Context) error {
		if !c.Connected() {
			t.Error("expected session inside WithSession")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fn error, got %v", err)
	}
	if c.Connected() {
		t.Error("expected disconnect after WithSession")
	}
}

func TestConnectUnreachable(t *testing.T) {
	c := NewClient(SSEDialer("http://127.0.0.1:1/sse"), nil, WithCallTimeout(2*time.Second))

	start := time.Now()
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected connect to fail")
	}
	if c.Connected() {
		t.Error("expected client to stay disconnected")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("connect took too long: %s", elapsed)
	}
}

func TestResourceKey(t *testing.T) {
	tests := map[string]string{
		"portfolio://projects": "projects",
		"portfolio://a/b/c":    "c",
		"file:///tmp/x/":       "x",
		"plain":                "plain",
	}
	for uri, want := range tests {
		if got := ResourceKey(uri); got != want {
			t.Errorf("ResourceKey(%q): expected %q, got %q", uri, want, got)
		}
	}
}

func TestFetchResourcesDecodesBlobs(t *testing.T) {
	srv := server.NewMCPServer("blobs", "test", server.WithResourceCapabilities(false, false))
	blob := func(uri string, data []byte) {
		srv.AddResource(mcpgo.NewResource(uri, uri), func(ctx context.Context, req mcpgo.ReadResourceRequest) ([]mcpgo.ResourceContents, error) {
			return []mcpgo.ResourceContents{mcpgo.BlobResourceContents{
				URI:  req.Params.URI,
				Blob: base64.StdEncoding.EncodeToString(data),
			}}, nil
		})
	}
	blob("portfolio://about", []byte(`{"name":"Sahana"}`))
	blob("portfolio://photo", []byte{0xff, 0xd8, 0xff, 0x00})

	c := NewClient(InProcessDialer(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	snap, err := c.FetchResources(context.Background())
	if err != nil {
		t.Fatalf("FetchResources: %v", err)
	}

	about, ok := snap.Get("about")
	if !ok {
		t.Fatal("expected blob resource to load")
	}
	if doc, ok := about.(map[string]any); !ok || doc["name"] != "Sahana" {
		t.Errorf("expected decoded JSON document, got %#v", about)
	}

	photo, ok := snap.Get("photo")
	if !ok {
		t.Fatal("expected binary blob to be kept")
	}
	if photo != base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0x00}) {
		t.Errorf("expected binary blob kept as its encoded text, got %#v", photo)
	}
}
