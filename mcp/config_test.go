package mcp

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigJSON5(t *testing.T) {
	path := writeConfig(t, `{
		// remote provider
		"mcpServers": {
			"portfolio": {"url": "http://localhost:8001/sse"},
			"local": {
				"command": "portfolio-chat",
				"args": ["mcp-server", "--transport", "stdio"],
				"env": {"PORTFOLIO_DATA_DIR": "data"},
			},
		},
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.MCPServers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.MCPServers))
	}

	names := cfg.Names()
	if names[0] != "local" || names[1] != "portfolio" {
		t.Errorf("expected sorted names, got %v", names)
	}

	local, err := cfg.Server("local")
	if err != nil {
		t.Fatalf("Server: %v", err)
	}
	if local.Endpoint() != "portfolio-chat mcp-server --transport stdio" {
		t.Errorf("unexpected endpoint %q", local.Endpoint())
	}

	if _, err := cfg.Server(""); err == nil {
		t.Error("expected error when picking the only server from two")
	}
	if _, err := cfg.Server("missing"); err == nil {
		t.Error("expected error for unknown server")
	}
}

func TestLoadConfigRequiresTarget(t *testing.T) {
	path := writeConfig(t, `{"mcpServers": {"broken": {}}}`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for server without url or command")
	}
}

func TestDialerFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr bool
	}{
		{"sse default", ServerConfig{URL: "http://localhost:8001/sse"}, false},
		{"streamable", ServerConfig{URL: "http://localhost:8001/mcp", Transport: "http"}, false},
		{"stdio implied", ServerConfig{Command: "portfolio-chat"}, false},
		{"stdio without command", ServerConfig{Transport: "stdio", URL: "http://x"}, true},
		{"unknown transport", ServerConfig{URL: "http://x", Transport: "carrier-pigeon"}, true},
		{"nothing", ServerConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dial, err := DialerFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dial == nil {
				t.Error("expected dialer")
			}
		})
	}
}
