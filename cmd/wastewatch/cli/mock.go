package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/wastewatch/wastewatch/internal/app"
	"github.com/wastewatch/wastewatch/internal/observability"
)

// MockServerCommand serves the in-memory backend until ctx is cancelled.
func (c *CLI) MockServerCommand(ctx context.Context, args []string) int {
	fs := c.flags("mock-server")
	addr := fs.String("addr", c.cfg.MockAddr, "listen address")
	seed := fs.Bool("seed", true, "create demo accounts and waste types")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	metrics := observability.NewMetrics()
	backend := app.NewMockServer(c.cfg, c.logger, metrics)
	if *seed {
		if err := backend.Seed(c.cfg.MockSeedPass); err != nil {
			c.errorf("mock-server: seed: %v", err)
			return ExitFailure
		}
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		c.errorf("mock-server: %v", err)
		return ExitFailure
	}
	server := &http.Server{
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}
	_, _ = fmt.Fprintf(c.stdout, "mock backend listening on http://%s%s\n", listener.Addr(), backend.Prefix())
	if *seed {
		_, _ = fmt.Fprintf(c.stdout, "accounts: admin, officer, citizen (password %q)\n", c.cfg.MockSeedPass)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.errorf("mock-server: %v", err)
			return ExitFailure
		}
		return ExitOK
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("graceful shutdown", slog.Any("error", err))
		return ExitFailure
	}
	return ExitOK
}
