// Command server is a minimal HTTP front-end implementing the §6 service
// contract over package tavla. It stands in for the HTTP routing,
// authentication, templating, audio-serving, CSV-export, and transcoding
// collaborators spec.md §1 declares external to the core: this binary
// exists only so the core's service contract has one concrete consumer to
// verify it against.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ivrit-ai/tavla"
)

var (
	cfgFile string
	addr    string
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nforced exit")
		os.Exit(1)
	}()

	if err := serveCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the search and segment-lookup HTTP API over a built tavla store",
	Long: `server exposes package tavla's Engine over HTTP: GET /search for
candidate-filtered, regex-verified full-text search, plus the segment and
episode lookups a caller needs to enrich a page of hits.

It opens its store read-only and never mutates it; run the ingest command
separately to build or rebuild the store it serves.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := tavla.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	engine, err := tavla.New(cfg)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	mountRoutes(r, newHandler(engine))

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx := cmd.Context()
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
