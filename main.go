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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/database-playground/sqlgrader/lib/config"
	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/grader"
	"github.com/database-playground/sqlgrader/lib/sessions"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "sqlgrader",
	Short:         "Grade SQL exercise submissions against reference queries",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the grading HTTP service",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(gradeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadCatalog returns the configured exercise catalog, or the built-in one.
func loadCatalog(cfg *config.Config) (*exercise.Catalog, error) {
	if cfg.Exercises.File == "" {
		return exercise.Default()
	}
	return exercise.LoadFile(cfg.Exercises.File)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	shutdown, err := setupOTelSDK(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup OpenTelemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", slog.Any("error", err))
		}
	}()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("load exercises: %w", err)
	}
	slog.Info("Loaded exercises", slog.Int("count", catalog.Len()))

	registry, err := sessions.New(cfg.Sessions.Max, cfg.Sessions.TTL)
	if err != nil {
		return err
	}
	defer registry.Close()

	expected, err := grader.NewExpectedCache(cfg.Expected.CacheSize, cfg.Query.Timeout)
	if err != nil {
		return err
	}

	service := &GradingService{
		catalog:      catalog,
		sessions:     registry,
		expected:     expected,
		queryTimeout: cfg.Query.Timeout,
	}
	r := newRouter(service, slog.Default(), prometheus.NewRegistry())

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Received signal to shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", slog.Any("error", err))
	}

	return nil
}
