package portfolio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// ShutdownTimeout bounds how long ServeSSE waits for open streams to close.
const ShutdownTimeout = 10 * time.Second

// ServeSSE serves srv over Server-Sent Events on addr until ctx is done.
// baseURL is the externally visible address clients connect to.
func ServeSSE(ctx context.Context, srv *server.MCPServer, addr, baseURL string) error {
	httpSrv := &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second}
	sse := server.NewSSEServer(srv, server.WithBaseURL(baseURL), server.WithHTTPServer(httpSrv))
	httpSrv.Handler = sse

	errc := make(chan error, 1)
	go func() { errc <- sse.Start(addr) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sse server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return sse.Shutdown(shutdownCtx)
	}
}

// ServeStdio serves srv over stdin/stdout until the input stream closes.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}
