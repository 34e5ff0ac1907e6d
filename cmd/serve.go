package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/telegram-mcp/internal/instrumentation"
	"github.com/teemow/telegram-mcp/internal/logging"
	"github.com/teemow/telegram-mcp/internal/resources"
	"github.com/teemow/telegram-mcp/internal/server"
	"github.com/teemow/telegram-mcp/internal/telegram"
	"github.com/teemow/telegram-mcp/internal/tools/telegram_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	defaultMetricsAddr = ":9090"
)

// serveOptions holds the serve flags. They are bound on both the root
// command and the serve subcommand.
type serveOptions struct {
	transport        string
	httpAddr         string
	readOnly         bool
	disableStreaming bool
	debug            bool
	metricsEnabled   bool
	metricsAddr      string
	authToken        string
	logFormat        string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server for the logged-in Telegram account.

Transports:
  stdio            Read requests from stdin and write responses to stdout (default)
  streamable-http  Serve /mcp over HTTP with /healthz and /readyz

Logs are written to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServeEnv(cmd, &opts, os.Getenv)
			return runServe(cmd.Context(), opts)
		},
	}

	bindServeFlags(cmd, &opts)
	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport). Can also use MCP_HTTP_ADDR env var.")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Only register tools that do not change the account. Can also use MCP_READ_ONLY env var.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transport only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", defaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// applyServeEnv fills options whose flag was not set explicitly from the
// environment.
func applyServeEnv(cmd *cobra.Command, opts *serveOptions, getenv func(string) string) {
	flags := cmd.Flags()

	if !flags.Changed("http-addr") {
		if v := getenv("MCP_HTTP_ADDR"); v != "" {
			opts.httpAddr = v
		}
	}
	if !flags.Changed("read-only") {
		if v, err := strconv.ParseBool(getenv("MCP_READ_ONLY")); err == nil {
			opts.readOnly = v
		}
	}
	if !flags.Changed("metrics-enabled") {
		if v, err := strconv.ParseBool(getenv("METRICS_ENABLED")); err == nil {
			opts.metricsEnabled = v
		}
	}
	if !flags.Changed("metrics-addr") {
		if v := getenv("METRICS_ADDR"); v != "" {
			opts.metricsAddr = v
		}
	}

	opts.authToken = getenv("MCP_AUTH_TOKEN")
	opts.logFormat = getenv("LOG_FORMAT")
}

func newLogger(opts serveOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	return logging.NewLogger(os.Stderr, level, opts.logFormat)
}

// newMCPServer builds the MCP server with every tool, prompt and resource
// registered against sc.
func newMCPServer(sc *server.ServerContext, readOnly bool) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("telegram-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if err := telegram_tools.RegisterTelegramTools(mcpSrv, sc, readOnly); err != nil {
		return nil, fmt.Errorf("failed to register Telegram tools: %w", err)
	}
	if err := resources.RegisterProfileResources(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register profile resources: %w", err)
	}
	return mcpSrv, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(opts)
	slog.SetDefault(logger)

	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	tgConfig, err := telegram.LoadConfig()
	if err != nil {
		logger.Error("Invalid Telegram configuration", logging.Err(err))
		return err
	}
	if !tgConfig.HasSession() {
		logger.Warn("No Telegram session found, tools will report client_unavailable until you run with --login",
			"session", tgConfig.SessionPath)
	}

	// Initialize instrumentation provider
	instrConfig, err := instrumentation.LoadConfig(os.Getenv)
	if err != nil {
		logger.Error("Invalid instrumentation configuration", logging.Err(err))
		return err
	}
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	serverContext, err := server.NewServerContext(ctx, server.NewClientFactory(tgConfig), logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("Error during server context shutdown", logging.Err(err))
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}

	mcpSrv, err := newMCPServer(serverContext, opts.readOnly)
	if err != nil {
		return err
	}

	logger.Info("Starting telegram-mcp",
		"version", version,
		"transport", opts.transport,
		"read_only", opts.readOnly)

	if opts.transport == transportStdio {
		return runStdioServer(ctx, mcpSrv, logger)
	}

	if opts.metricsEnabled && provider.PrometheusEnabled() {
		metricsServer, err := startMetricsServer(opts.metricsAddr, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	return runStreamableHTTPServer(ctx, mcpSrv, serverContext, opts, logger)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdio := mcpserver.NewStdioServer(mcpSrv)
	stdio.SetErrorLogger(logging.NewSlogAdapter(logger).StdLogger(slog.LevelError))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info("Stdio server stopped")
	return nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ready:
		logger.Info("Metrics server started", "addr", metricsServer.ListenAddr())
		return metricsServer, nil
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, server.HTTPServerConfig{
		AuthToken:        opts.authToken,
		DisableStreaming: opts.disableStreaming,
		Version:          version,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	if opts.authToken == "" {
		logger.Warn("MCP_AUTH_TOKEN is not set, the HTTP endpoint accepts unauthenticated requests")
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(opts.httpAddr, ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
	case err := <-serverDone:
		if err == nil {
			return nil
		}
		return fmt.Errorf("HTTP server failed to start: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
