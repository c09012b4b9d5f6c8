package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-rebuilder/internal/api"
	"github.com/ryanbastic/go-rebuilder/internal/metrics"
	"github.com/ryanbastic/go-rebuilder/internal/rebuild"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions

	// Ready, when set, receives the listener address once the server
	// accepts connections.
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:   "serve",
		Short: "Run the content API",
		Long: `Run the HTTP content API.

Connects to PostgreSQL (or the in-memory store when DATABASE_URL is unset),
applies migrations, and serves until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	env, err := loadEnvironment(opts.RootOptions, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	logger := env.logger

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, env, true)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open store", err)
	}
	defer be.Close()

	if be.pool != nil {
		if err := prometheus.Register(metrics.NewPoolCollector(be.pool)); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				logger.Warn("failed to register pool metrics", "error", err)
			}
		}
	}

	notifier, debouncer := env.newNotifier()
	go rebuild.RunSweeper(ctx, debouncer, 0, nil, logger)
	logger.Info("rebuild notifier ready",
		"transport", notifier.Transport(),
		"cooldown", debouncer.Cooldown(),
	)

	geocoder, pacer := env.newGeocoder()
	svc := env.newService(be, geocoder, pacer, notifier)
	handler := api.NewServer(logger, svc, be.pingers(),
		api.WithStatus("rebuild_transport", notifier.Transport),
		api.WithStatus("geocoder_circuit", geocoder.CircuitState),
	)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+env.cfg.Port)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to listen", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", ln.Addr().String(), "store", be.name)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitFailure, "HTTP server error", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
