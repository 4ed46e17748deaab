// Package main provides the CLI entry point for the canvas-agent
// backend: the image generation/editing, analysis, knowledge, and
// inspiration routes consumed by the canvas action engine.
//
// # Basic Usage
//
// Start the server:
//
//	canvas-agent serve --config canvas-agent.yaml
//
// Print the configuration schema:
//
//	canvas-agent schema
//
// # Environment Variables
//
//   - CANVAS_AGENT_ADDR: Listen address (default :8787)
//   - CANVAS_AGENT_GOOGLE_API_KEY: Google Gemini API key
//   - CANVAS_AGENT_GOOGLE_BASE_URL: Gemini endpoint override
//   - CANVAS_AGENT_DOCUMENT_BACKEND: Document store backend (memory|sqlite)
//   - CANVAS_AGENT_DOCUMENT_PATH: SQLite database path
//   - CANVAS_AGENT_LOG_LEVEL: Log level (debug|info|warn|error)
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nanobanana123/tldraw-agent/internal/action"
	"github.com/nanobanana123/tldraw-agent/internal/agent"
	"github.com/nanobanana123/tldraw-agent/internal/config"
	"github.com/nanobanana123/tldraw-agent/internal/document"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
	"github.com/nanobanana123/tldraw-agent/internal/provider"
	"github.com/nanobanana123/tldraw-agent/internal/server"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "canvas-agent",
		Short:        "canvas-agent - backend for the canvas action engine",
		Long:         "canvas-agent serves the image generation, analysis, knowledge, and inspiration routes the canvas editing assistant relies on.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildRunCmd(),
		buildSchemaCmd(),
	)
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend HTTP routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	metrics := observability.NewMetrics()

	httpClient := &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	gemini := provider.NewGemini(provider.GeminiConfig{
		APIKey:     cfg.Providers.Google.APIKey,
		BaseURL:    cfg.Providers.Google.BaseURL,
		ImageModel: cfg.Providers.Google.ImageModel,
		TextModel:  cfg.Providers.Google.TextModel,
		HTTPClient: httpClient,
		Logger:     logger,
		Metrics:    metrics,
	})
	knowledge := provider.NewKnowledgeClient(cfg.Providers.Knowledge.BaseURL, httpClient)
	inspiration := provider.NewInspirationClient(cfg.Providers.Inspiration.BaseURL, httpClient)

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		Gemini:      gemini,
		Knowledge:   knowledge,
		Inspiration: inspiration,
		Logger:      logger,
		Metrics:     metrics,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		streamPath string
		backendURL string
		offsetX    float64
		offsetY    float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one action stream against the document",
		Long:  "Reads an SSE action stream (file or stdin), applies it to the configured document store, and prints the transcript and any retry hint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			input := cmd.InOrStdin()
			if streamPath != "" && streamPath != "-" {
				f, err := os.Open(streamPath)
				if err != nil {
					return fmt.Errorf("open stream: %w", err)
				}
				defer f.Close()
				input = f
			}
			return runTurn(cmd.Context(), cmd.OutOrStdout(), cfg, input, backendURL, action.Vec{X: offsetX, Y: offsetY})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&streamPath, "stream", "s", "-", "SSE action stream file (default stdin)")
	cmd.Flags().StringVar(&backendURL, "backend", "http://localhost:8787", "Backend route base URL")
	cmd.Flags().Float64Var(&offsetX, "offset-x", 0, "Model to canvas X offset")
	cmd.Flags().Float64Var(&offsetY, "offset-y", 0, "Model to canvas Y offset")
	return cmd
}

func runTurn(ctx context.Context, out io.Writer, cfg *config.Config, input io.Reader, backendURL string, offset action.Vec) error {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	metrics := observability.NewMetrics()

	store, closeStore, err := openDocumentStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	routes := provider.NewRouteClient(backendURL, &http.Client{Timeout: cfg.Providers.HTTPTimeout})
	registry := action.NewRegistry(
		action.NewMessageHandler(),
		action.NewPlanHandler(),
		action.NewDesignDirectionHandler(),
		action.NewDesignGuidanceHandler(),
		action.NewCreateImageHandler(store, routes, logger, metrics),
		action.NewAnalyzeImageHandler(store, routes, logger, metrics),
		action.NewKnowledgeHandler(routes, logger, metrics),
		action.NewInspirationHandler(routes, logger, metrics),
		action.NewDeleteHandler(store, logger, metrics),
	)

	runner := agent.New(registry, store, logger, metrics)
	result, err := runner.RunTurn(ctx, agent.NewStreamReader(input), agent.TurnOptions{Offset: offset})
	if err != nil {
		return fmt.Errorf("run turn: %w", err)
	}

	for _, entry := range result.Transcript {
		fmt.Fprintf(out, "[%s] %s\n", entry.Kind, entry.Info.Description)
	}
	for _, schedule := range result.Scheduled {
		for _, message := range schedule.Messages {
			fmt.Fprintf(out, "scheduled: %s\n", message)
		}
	}
	if result.RetryPending {
		fmt.Fprintf(out, "retry: %s\n", result.RetryMessage)
	}
	if result.SuggestedImageSearch != "" {
		fmt.Fprintf(out, "suggested image search: %s\n", result.SuggestedImageSearch)
	}
	return nil
}

func openDocumentStore(cfg *config.Config) (document.Store, func(), error) {
	switch cfg.Document.Backend {
	case "", "memory":
		return document.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := document.NewSQLiteStore(cfg.Document.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite document: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown document backend %q", cfg.Document.Backend)
	}
}

func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.JSONSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	}
}
