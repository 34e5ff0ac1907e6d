package instrumentation

import (
	"fmt"
	"io"
	"strconv"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultServiceName is reported when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "telegram-mcp"

// DefaultSamplingRate is the trace sampling ratio when OTEL_TRACES_SAMPLER_ARG
// is unset.
const DefaultSamplingRate = 0.1

// Config selects the exporters and labels of the instrumentation provider.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string

	// Enabled turns metrics and tracing on. A disabled provider hands out
	// a no-op Metrics value.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without a scheme.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Spans carry tool names and
	// chat types, so keep TLS outside local development.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based sampling ratio, 0.0 to 1.0.
	TraceSamplingRate float64

	// DetailedLabels adds the addressed chat to tool metrics. Chat IDs are
	// unbounded, so leave this off in production.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig

	// StdoutWriter receives the output of the stdout exporters. Standard
	// output carries the stdio transport, so the default is standard error.
	StdoutWriter io.Writer
}

// AuditLoggingConfig controls the audit trail of tool calls.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs chat IDs and usernames. Otherwise only the chat type
	// is logged.
	IncludePII bool
}

// LoadConfig reads the instrumentation settings through getenv. Unset
// variables take their defaults; malformed ones are an error.
func LoadConfig(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}

	cfg := Config{
		ServiceName:       env.str("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           env.bool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   env.str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   env.str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      env.bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", DefaultSamplingRate),
		DetailedLabels:    env.bool("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.bool("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.bool("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the exporter names, the sampling rate and that OTLP
// exporters have an endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when an exporter is otlp; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return nil
}

// envReader looks up variables and keeps the first parse error.
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) bool(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return b
}

func (e *envReader) float(key string, def float64) float64 {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return f
}

func (e *envReader) fail(key, value string) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s %q", key, value)
	}
}
