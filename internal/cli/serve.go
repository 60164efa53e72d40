package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dsla/internal/handler"
	"dsla/internal/hub"
	"dsla/internal/observability/otelx"
	"dsla/internal/service"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API. The store is opened and pinged before the listener
starts; a missing or unreachable store stops startup.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "HTTP listen address (overrides server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	logger.Info("config loaded", "path", path, "summary", cfg.Summary())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Init(ctx, logger, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	if shutdownTracing != nil {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracing shutdown error", "error", err)
			}
		}()
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = c.Documents.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}
	logger.Info("store connected", "driver", cfg.Store.Driver, "collection", cfg.Store.Collection)

	sseHub := hub.New(logger)
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	c.Events.Subscribe(eventChan)
	go hub.Forward(ctx, sseHub, eventChan)

	server := newServer(c, sseHub)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// newServer wires routes and middleware into an http.Server
func newServer(c *components, sseHub *hub.Hub) *http.Server {
	mux := http.NewServeMux()
	handler.New(c.Dedup, c.Documents, c.Logger).Register(mux)

	// SSE events endpoint
	mux.Handle("GET /events", sseHub)

	finalHandler := handler.Chain(mux,
		handler.Recover(c.Logger),
		handler.CORS,
		handler.Logger(c.Logger),
		handler.Tracing,
	)

	srv := c.Config.Server
	return &http.Server{
		Addr:         srv.Addr,
		Handler:      finalHandler,
		ReadTimeout:  srv.ReadTimeout.Duration(),
		WriteTimeout: srv.WriteTimeout.Duration(),
		IdleTimeout:  srv.IdleTimeout.Duration(),
	}
}
