package mcp

import (
	"fmt"
	"sort"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/server"
)

// Dialer creates an unstarted mcp-go client. Client.Connect starts it.
type Dialer func() (*mcpclient.Client, error)

// SSEDialer connects to a server over Server-Sent Events.
func SSEDialer(url string) Dialer {
	return func() (*mcpclient.Client, error) {
		return mcpclient.NewSSEMCPClient(url)
	}
}

// StreamableHTTPDialer connects to a server over streamable HTTP.
func StreamableHTTPDialer(url string) Dialer {
	return func() (*mcpclient.Client, error) {
		return mcpclient.NewStreamableHttpClient(url)
	}
}

// StdioDialer spawns command and talks to it over stdin/stdout.
func StdioDialer(command string, args []string, env map[string]string) Dialer {
	environ := make([]string, 0, len(env))
	for k, v := range env {
		environ = append(environ, k+"="+v)
	}
	sort.Strings(environ)

	return func() (*mcpclient.Client, error) {
		return mcpclient.NewClient(transport.NewStdio(command, environ, args...)), nil
	}
}

// InProcessDialer talks to a server running in the same process.
func InProcessDialer(srv *server.MCPServer) Dialer {
	return func() (*mcpclient.Client, error) {
		return mcpclient.NewInProcessClient(srv)
	}
}

// DialerFromConfig picks a dialer for a configured server. A URL without an
// explicit transport uses SSE.
func DialerFromConfig(cfg ServerConfig) (Dialer, error) {
	switch {
	case cfg.Transport == TransportStdio || (cfg.Transport == "" && cfg.URL == "" && cfg.Command != ""):
		if cfg.Command == "" {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		return StdioDialer(cfg.Command, cfg.Args, cfg.Env), nil
	case cfg.URL == "":
		return nil, fmt.Errorf("%s transport requires a url", cfg.Transport)
	case cfg.Transport == "" || cfg.Transport == TransportSSE:
		return SSEDialer(cfg.URL), nil
	case cfg.Transport == TransportStreamableHTTP || cfg.Transport == "streamable-http":
		return StreamableHTTPDialer(cfg.URL), nil
	default:
		return nil, fmt.Errorf("unknown mcp transport %q", cfg.Transport)
	}
}
