package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	httpadapter "github.com/Himanshu040604/PregelFlow/pkg/adapters/http"
	mcpadapter "github.com/Himanshu040604/PregelFlow/pkg/adapters/mcp"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// Handler builds the HTTP API of the app.
func (a *App) Handler() http.Handler {
	return httpadapter.NewHandler(a.Engine,
		httpadapter.WithStreams(a.Streams),
		httpadapter.WithMetrics(a.Metrics.Handler()),
		httpadapter.WithLogger(a.Logger),
	)
}

// Serve runs the HTTP API on l until ctx is done, then shuts down
// gracefully. A nil l listens on the configured address.
func Serve(ctx context.Context, app *App, l net.Listener) error {
	if l == nil {
		var err error
		l, err = net.Listen("tcp", app.Config.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", app.Config.Server.Addr, err)
		}
	}
	httpServer := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("HTTP server listening", "address", l.Addr().String())
		if err := httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		app.Logger.Info("Shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP runs the MCP server. With stdio, logs must stay on stderr.
func ServeMCP(ctx context.Context, app *App, transport string, port int) error {
	srv := mcpadapter.NewServer(app.Engine,
		mcpadapter.WithDefaultSession(app.Config.Session),
		mcpadapter.WithLogger(app.Logger),
	)
	switch transport {
	case TransportStdio:
		app.Logger.Info("MCP server ready (stdio)", "pid", os.Getpid())
		return srv.ServeStdio()
	case TransportSSE:
		return srv.ServeSSE(ctx, fmt.Sprintf(":%d", port), fmt.Sprintf("http://localhost:%d", port))
	}
	return fmt.Errorf("unknown transport %q (supported: %s, %s)", transport, TransportStdio, TransportSSE)
}
