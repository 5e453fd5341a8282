package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Iron-Ham/gentle/internal/config"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/fakeapi"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/spf13/cobra"
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory backend for local use",
	Long: `Run an in-memory backend that speaks the task API, the sign-in
endpoints and the celebration socket. Nothing is persisted.

Every sign-in accepts the same one-time code (123456 unless --code is set).
Point the client at it with --api or api.base_url.`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

var (
	devServerAddr    string
	devServerShape   string
	devServerDevUser bool
	devServerCode    string
)

// shutdownTimeout bounds how long open requests may finish after an interrupt.
const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(devServerCmd)

	devServerCmd.Flags().StringVar(&devServerAddr, "addr", "", "Listen address (default from dev_server.addr)")
	devServerCmd.Flags().StringVar(&devServerShape, "shape", "list", "Too-big response shape: list, wrapped, step_id")
	devServerCmd.Flags().BoolVar(&devServerDevUser, "dev-user", false, "Treat requests without a token as a fixed development user")
	devServerCmd.Flags().StringVar(&devServerCode, "code", fakeapi.DefaultOTPCode, "One-time code every sign-in accepts")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	shape, err := fakeapi.ParseTooBigShape(devServerShape)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := devServerAddr
	if addr == "" {
		addr = cfg.DevServer.Addr
	}

	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), cfg.Logging.Level).WithView("dev-server")
	backend := fakeapi.New(
		fakeapi.WithLogger(logger),
		fakeapi.WithTooBigShape(shape),
		fakeapi.WithDevUser(devServerDevUser),
		fakeapi.WithOTPCode(devServerCode),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (code %s)\n", ln.Addr(), devServerCode)
	return serve(cmd.Context(), ln, backend, logger)
}

// serve runs the backend on ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, backend *fakeapi.Server, logger *logging.Logger) error {
	srv := &http.Server{
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		logger.Info("shutting down")
		backend.Hub().CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err.Error())
		}
	})
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dev server stopped: %w", err)
	}
	return nil
}
