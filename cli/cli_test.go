package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sahana359/sahanarajashekara/config"
	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/mcp"
	"github.com/sahana359/sahanarajashekara/portfolio"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// isolate clears settings that would point setup at a real provider.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MCP_SERVER_URL", "MCP_CONFIG", "MCP_SERVER_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT", "LLM_PROVIDER"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORTFOLIO_DATA_DIR", "../data")
	t.Setenv("LOG_LEVEL", "error")
}

func testOptions() (Options, *bytes.Buffer) {
	var out bytes.Buffer
	return Options{Stdout: &out, Stderr: io.Discard}, &out
}

func TestResolveDialer(t *testing.T) {
	dial, endpoint, err := resolveDialer(config.MCPConfig{})
	if err != nil || dial != nil || endpoint != "" {
		t.Errorf("expected no provider, got %v %q %v", dial != nil, endpoint, err)
	}

	dial, endpoint, err = resolveDialer(config.MCPConfig{ServerURL: "http://localhost:8001/sse"})
	if err != nil || dial == nil {
		t.Fatalf("expected SSE dialer, got %v", err)
	}
	if endpoint != "http://localhost:8001/sse" {
		t.Errorf("unexpected endpoint %q", endpoint)
	}

	path := filepath.Join(t.TempDir(), "mcp.json")
	body := `{"mcpServers": {"local": {"command": "portfolio-chat", "args": ["mcp-server", "--transport", "stdio"]}}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	dial, endpoint, err = resolveDialer(config.MCPConfig{ConfigPath: path})
	if err != nil || dial == nil {
		t.Fatalf("expected stdio dialer, got %v", err)
	}
	if endpoint != "portfolio-chat mcp-server --transport stdio" {
		t.Errorf("unexpected endpoint %q", endpoint)
	}

	if _, _, err := resolveDialer(config.MCPConfig{ConfigPath: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromProvider(t *testing.T) {
	static, err := corpus.LoadDir("../data", nil)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	client := mcp.NewClient(mcp.InProcessDialer(portfolio.NewServer(static, portfolio.Options{})), nil)

	snap, tools := loadFromProvider(context.Background(), client, "../data", quietLogger())
	if snap.Source() != corpus.SourceMCP {
		t.Errorf("expected mcp source, got %s", snap.Source())
	}
	if snap.Len() != static.Len() {
		t.Errorf("expected %d resources, got %d", static.Len(), snap.Len())
	}
	if len(tools) == 0 {
		t.Error("expected tools from provider")
	}
	if client.Connected() {
		t.Error("expected session to be closed after loading")
	}
}

func TestLoadFromProviderFallsBack(t *testing.T) {
	client := mcp.NewClient(mcp.SSEDialer("http://127.0.0.1:1/sse"), nil)

	snap, tools := loadFromProvider(context.Background(), client, "../data", quietLogger())
	if snap.Source() != corpus.SourceStatic {
		t.Errorf("expected static fallback, got %s", snap.Source())
	}
	if tools != nil {
		t.Errorf("expected no tools, got %d", len(tools))
	}
}

func TestLoadStaticMissingDir(t *testing.T) {
	snap := loadStatic(filepath.Join(t.TempDir(), "nope"), quietLogger())
	if snap.Loaded() || snap.Source() != corpus.SourceNone {
		t.Errorf("expected empty snapshot, got %s with %d", snap.Source(), snap.Len())
	}
}

func TestShowCorpus(t *testing.T) {
	isolate(t)
	opts, out := testOptions()

	if err := ShowCorpus(context.Background(), opts); err != nil {
		t.Fatalf("ShowCorpus: %v", err)
	}
	if !strings.Contains(out.String(), "Source: static") {
		t.Errorf("expected static source, got %q", out.String())
	}
	if !strings.Contains(out.String(), "  about\n") {
		t.Errorf("expected about resource, got %q", out.String())
	}
}

func TestShowSystemPrompt(t *testing.T) {
	isolate(t)
	opts, out := testOptions()

	if err := ShowSystemPrompt(context.Background(), opts); err != nil {
		t.Fatalf("ShowSystemPrompt: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("expected prompt output")
	}
	if strings.Contains(out.String(), "(no data)") {
		t.Error("expected corpus sections to be populated")
	}
}

func TestListToolsLocal(t *testing.T) {
	isolate(t)
	opts, out := testOptions()

	if err := ListTools(context.Background(), false, opts); err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if !strings.Contains(out.String(), "No tools available") {
		t.Errorf("expected no tools without a provider, got %q", out.String())
	}

	out.Reset()
	opts.LocalTools = true
	if err := ListTools(context.Background(), true, opts); err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if !strings.Contains(out.String(), "search_projects") {
		t.Errorf("expected search_projects tool, got %q", out.String())
	}
	if !strings.Contains(out.String(), "Prompt templates:") {
		t.Errorf("expected prompt templates in verbose output, got %q", out.String())
	}
}

func TestAskRequiresMessage(t *testing.T) {
	isolate(t)
	opts, _ := testOptions()

	if err := Ask(context.Background(), "   ", "", nil, opts); err == nil {
		t.Error("expected error for blank message")
	}
	if err := Ask(context.Background(), "", "summary", nil, opts); err == nil {
		t.Error("expected error for template without a provider")
	}
}

func TestServeMCPRejectsUnknownTransport(t *testing.T) {
	isolate(t)
	opts, _ := testOptions()

	err := ServeMCP(context.Background(), "carrier-pigeon", "", "", opts)
	if err == nil || !strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("expected unknown transport error, got %v", err)
	}
}
