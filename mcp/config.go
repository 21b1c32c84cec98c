// MCP server configuration file support.
//
// Supports Anthropic-style MCP configuration format, extended with remote
// servers. Comments and trailing commas are accepted:
//
//	{
//	  "mcpServers": {
//	    // remote portfolio server
//	    "portfolio": {"url": "http://localhost:8001/sse"},
//	    "local": {
//	      "command": "portfolio-chat",
//	      "args": ["mcp-server", "--transport", "stdio"],
//	    },
//	  }
//	}
package mcp

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/titanous/json5"
)

// Transport names accepted in ServerConfig.Transport.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "http"
	TransportStdio          = "stdio"
)

// Config represents the MCP configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig represents a single MCP server configuration.
type ServerConfig struct {
	URL       string            `json:"url,omitempty"`
	Transport string            `json:"transport,omitempty"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// LoadConfig loads MCP configuration from a JSON5 file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json5.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, server := range config.MCPServers {
		if server.URL == "" && server.Command == "" {
			return nil, fmt.Errorf("mcp server %q: either url or command is required", name)
		}
	}

	return &config, nil
}

// Server returns the named server, or the only server when name is empty.
func (c *Config) Server(name string) (ServerConfig, error) {
	if name != "" {
		server, ok := c.MCPServers[name]
		if !ok {
			return ServerConfig{}, fmt.Errorf("mcp server %q not configured (have: %s)", name, strings.Join(c.Names(), ", "))
		}
		return server, nil
	}
	if len(c.MCPServers) != 1 {
		return ServerConfig{}, fmt.Errorf("mcp config has %d servers; pick one by name", len(c.MCPServers))
	}
	for _, server := range c.MCPServers {
		return server, nil
	}
	return ServerConfig{}, nil
}

// Names returns the configured server names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Endpoint describes where the server lives, for logs and diagnostics.
func (s ServerConfig) Endpoint() string {
	if s.URL != "" {
		return s.URL
	}
	return strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
}
