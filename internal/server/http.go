package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/telegram-mcp/internal/logging"
)

const (
	// DefaultHTTPAddr is the default listen address for the streamable HTTP transport.
	DefaultHTTPAddr = ":8080"

	// MCPEndpointPath is where the streamable HTTP transport is mounted.
	MCPEndpointPath = "/mcp"
)

// HTTPServerConfig configures the streamable HTTP transport.
type HTTPServerConfig struct {
	// AuthToken, when set, is required as a Bearer token on MCP requests.
	AuthToken string

	// DisableStreaming turns off SSE streaming of responses.
	DisableStreaming bool

	// Version is reported by the detailed health endpoint.
	Version string
}

// HTTPServer serves the MCP server over streamable HTTP together with the
// health endpoints.
type HTTPServer struct {
	mcpServer     *mcpserver.MCPServer
	serverContext *ServerContext
	health        *HealthChecker
	config        HTTPServerConfig
	logger        *slog.Logger
	httpServer    *http.Server
	listenAddr    string
}

// NewHTTPServer creates the HTTP transport for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}

	return &HTTPServer{
		mcpServer:     mcpServer,
		serverContext: sc,
		health:        NewHealthChecker(sc, config.Version),
		config:        config,
		logger:        sc.Logger(),
	}, nil
}

// Health returns the health checker backing /healthz and /readyz.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler builds the router. It is exposed for tests.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordRequests)

	s.health.RegisterHealthEndpoints(r)

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(MCPEndpointPath),
		mcpserver.WithLogger(logging.NewSlogAdapter(s.logger)),
	}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)

	r.Group(func(r chi.Router) {
		if s.config.AuthToken != "" {
			r.Use(s.requireBearer)
		}
		r.Handle(MCPEndpointPath, streamable)
	})
	return r
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal closes ready (if non-nil) once the listener is bound.
func (s *HTTPServer) StartWithReadySignal(addr string, ready chan<- struct{}) error {
	if addr == "" {
		addr = DefaultHTTPAddr
	}

	// WriteTimeout stays unset so streamed responses are not cut off.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listenAddr = ln.Addr().String()

	s.logger.Info("starting streamable HTTP server",
		slog.String("addr", s.listenAddr),
		slog.String("endpoint", MCPEndpointPath),
		slog.Bool("auth", s.config.AuthToken != ""))
	if ready != nil {
		close(ready)
	}
	return s.httpServer.Serve(ln)
}

// ListenAddr returns the bound address once the server has started.
func (s *HTTPServer) ListenAddr() string {
	return s.listenAddr
}

// Shutdown marks the server not ready and drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *HTTPServer) requireBearer(next http.Handler) http.Handler {
	want := []byte(s.config.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="telegram-mcp"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recordRequests feeds the HTTP request metrics. The route pattern is used
// as the path label to keep cardinality bounded.
func (s *HTTPServer) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics := s.serverContext.Metrics()
		if metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "other"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
