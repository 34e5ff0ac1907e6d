package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/telegram-mcp/internal/instrumentation"
	"github.com/teemow/telegram-mcp/internal/logging"
	"github.com/teemow/telegram-mcp/internal/telegram"
)

// ErrShuttingDown is returned by Acquire once Shutdown has been called.
var ErrShuttingDown = errors.New("server is shutting down")

// ClientFactory constructs the Telegram client on first use.
type ClientFactory func(ctx context.Context) (*telegram.Client, error)

// NewClientFactory returns a factory that builds clients from cfg.
func NewClientFactory(cfg telegram.Config) ClientFactory {
	return func(ctx context.Context) (*telegram.Client, error) {
		return telegram.NewClient(ctx, cfg)
	}
}

// Telegram client states reported by ClientStatus.
const (
	ClientStatusReady          = "ready"
	ClientStatusNotInitialized = "not initialized"
	ClientStatusUnavailable    = "unavailable"
)

// ServerContext holds the context for the MCP server. It owns the single
// Telegram client shared by every handler.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	factory     ClientFactory
	client      *telegram.Client
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	mu          sync.RWMutex
	buildMu     sync.Mutex
	shutdown    bool
}

// NewServerContext creates a new server context. The client is not built
// until the first call to TelegramClient.
func NewServerContext(ctx context.Context, factory ClientFactory, logger *slog.Logger) (*ServerContext, error) {
	if factory == nil {
		return nil, fmt.Errorf("client factory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		factory: factory,
		logger:  logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// TelegramClient returns the shared client, creating it on first use. A
// client that was closed underneath is replaced. Construction is serialized
// by buildMu; sc.mu is only held to read or swap the client.
func (sc *ServerContext) TelegramClient(ctx context.Context) (*telegram.Client, error) {
	sc.mu.RLock()
	client, shutdown := sc.client, sc.shutdown
	sc.mu.RUnlock()

	if shutdown {
		return nil, ErrShuttingDown
	}
	if client != nil {
		if err := client.Ready(ctx); err == nil {
			return client, nil
		} else if !errors.Is(err, telegram.ErrClosed) {
			return nil, err
		}
	}

	sc.buildMu.Lock()
	defer sc.buildMu.Unlock()

	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil, ErrShuttingDown
	}
	// Another caller may have won the race.
	if current := sc.client; current != nil && current != client {
		sc.mu.Unlock()
		return current, current.Ready(ctx)
	}
	if sc.client != nil {
		sc.releaseLocked()
	}
	sc.mu.Unlock()

	created, err := sc.factory(sc.ctx)
	if err != nil {
		sc.logger.Warn("failed to create telegram client", logging.Err(err))
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		_ = created.Close()
		return nil, ErrShuttingDown
	}
	if err := ctx.Err(); err != nil {
		_ = created.Close()
		return nil, err
	}

	sc.client = created
	sc.metrics.IncrementActiveClients(sc.ctx)
	sc.logger.Info("telegram client ready", slog.String("bot", created.Self().Username))
	return created, nil
}

// Acquire implements the dispatcher handle.
func (sc *ServerContext) Acquire(ctx context.Context) (*telegram.Client, error) {
	return sc.TelegramClient(ctx)
}

// ClientStatus reports the state of the shared client without creating it.
func (sc *ServerContext) ClientStatus(ctx context.Context) string {
	sc.mu.RLock()
	client := sc.client
	sc.mu.RUnlock()

	if client == nil {
		return ClientStatusNotInitialized
	}
	if err := client.Ready(ctx); err != nil {
		return ClientStatusUnavailable
	}
	return ClientStatusReady
}

// releaseLocked closes the current client. Callers must hold sc.mu.
func (sc *ServerContext) releaseLocked() {
	if err := sc.client.Close(); err != nil {
		sc.logger.Warn("failed to close telegram client", logging.Err(err))
	}
	sc.metrics.DecrementActiveClients(sc.ctx)
	sc.client = nil
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil if not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by tool handlers.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil if not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown releases the Telegram client and cancels the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	if sc.client != nil {
		sc.releaseLocked()
	}
	sc.cancel()
	return nil
}
