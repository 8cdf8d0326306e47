// Serve command runs the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/api"
	"github.com/mesh-intelligence/metabolic/internal/engine"
)

func newServeCmd() *cobra.Command {
	var addr string
	var readOnly bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP, with Prometheus metrics at /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			logger := slog.Default()
			e, err := engine.New(backend, cfg.Engine, engine.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("engine settings: %w", err)
			}
			opts := []api.Option{api.WithLogger(logger)}
			if !readOnly {
				opts = append(opts, api.WithWriter(backend))
			}

			server := &http.Server{
				Addr:         addr,
				Handler:      api.NewServer(e, opts...).Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", "addr", addr, "database", backend.Path(), "read_only", readOnly)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "disable the sample logging routes")
	return cmd
}
