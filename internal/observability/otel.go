package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"careerflow/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig carries the effective tracing and metrics settings
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics bundles every custom instrument. Instruments stay nil when
// observability is disabled and the Record helpers check for that.
type Metrics struct {
	// Model calls
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Workflow outcomes
	WorkflowRuns         metric.Int64Counter
	WorkflowStepDuration metric.Float64Histogram
	WorkflowStepRetries  metric.Int64Counter
	MatchScores          metric.Float64Histogram
	AnswersGenerated     metric.Int64Counter
	ProgressConflicts    metric.Int64Counter

	// TLS and rate limiting
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge
	RateLimitHits   metric.Int64Counter
}

// ObservabilityManager owns the OpenTelemetry providers. A disabled manager
// is fully usable: every instrument is nil and every record call no-ops.
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config // nil for one-shot CLI runs
	res            *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager stands up tracer and meter providers plus the
// domain instruments. Shutdown must be called to flush exporters.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}
	if !obsConfig.Enabled {
		return om, nil
	}

	res, err := om.buildResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	om.res = res

	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := om.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return om, nil
}

// buildResource describes this process. Traces and metrics share the one
// resource so the instance id lines up across signals.
func (om *ObservabilityManager) buildResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.serviceInstanceID()),
		),
	)
}

// initTracing sets up the tracer provider and registers it globally.
func (om *ObservabilityManager) initTracing() error {
	exporter, err := om.buildSpanExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.res),
		trace.WithSampler(trace.TraceIDRatioBased(om.config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// buildSpanExporter picks console output for development, OTLP when
// configured, and otherwise discards spans.
func (om *ObservabilityManager) buildSpanExporter() (trace.SpanExporter, error) {
	switch {
	case om.config.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	case om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled:
		return om.otlpTraceExporter()
	default:
		return discardSpanExporter{}, nil
	}
}

// initMetrics sets up the meter provider and the custom instruments.
func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.buildMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(om.res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initInstruments()
}

// buildMetricReaders collects every configured reader: console output for
// development, OTLP push, Prometheus scrape. With nothing configured a
// manual reader keeps the provider functional.
func (om *ObservabilityManager) buildMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(om.metricsInterval())))
	}

	if om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled {
		reader, err := om.otlpMetricReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if reader != nil {
			readers = append(readers, reader)
			if err := StartPrometheusServer(mux, om.config.Prometheus.Port); err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
		}
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

// initInstruments registers the custom instruments. The closures fold the
// per-instrument error handling; the first failure wins.
func (om *ObservabilityManager) initInstruments() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)

	var firstErr error
	fail := func(name string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to create %s metric: %w", name, err)
		}
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		fail(name, err)
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		fail(name, err)
		return h
	}

	om.metrics = &Metrics{
		AIProcessingTime: seconds("careerflow_ai_processing_duration_seconds", "Time spent processing AI requests"),
		AIRequestCount:   counter("careerflow_ai_requests_total", "Total number of AI requests"),
		AIErrorCount:     counter("careerflow_ai_errors_total", "Total number of AI request errors"),

		WorkflowRuns:         counter("careerflow_workflow_runs_total", "Total number of workflow runs"),
		WorkflowStepDuration: seconds("careerflow_workflow_step_duration_seconds", "Duration of individual workflow steps"),
		WorkflowStepRetries:  counter("careerflow_workflow_step_retries_total", "Total number of workflow step retries"),
		AnswersGenerated:     counter("careerflow_answers_generated_total", "Total number of tailored answers generated"),
		ProgressConflicts:    counter("careerflow_progress_conflicts_total", "Total number of progress updates that exhausted their conflict retries"),

		CertReloadCount: counter("careerflow_cert_reloads_total", "Total number of certificate reloads"),
		RateLimitHits:   counter("careerflow_rate_limit_hits_total", "Total number of rate limit hits"),
	}

	tokens, err := meter.Int64Histogram("careerflow_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"))
	fail("careerflow_ai_token_usage_total", err)
	om.metrics.AITokenUsage = tokens

	scores, err := meter.Float64Histogram("careerflow_match_score",
		metric.WithDescription("Distribution of resume/job match scores"))
	fail("careerflow_match_score", err)
	om.metrics.MatchScores = scores

	expiry, err := meter.Float64Gauge("careerflow_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"))
	fail("careerflow_cert_expiry_seconds", err)
	om.metrics.CertExpiryTime = expiry

	return firstErr
}

// otlpTraceExporter builds the OTLP HTTP span exporter. Callers must have
// checked that OTLP is enabled, which implies fullConfig is set.
func (om *ObservabilityManager) otlpTraceExporter() (trace.SpanExporter, error) {
	otlpCfg := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlpCfg.Endpoint)}
	if otlpCfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpCfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpCfg.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// otlpMetricReader builds the periodic OTLP HTTP metric reader.
func (om *ObservabilityManager) otlpMetricReader() (sdkmetric.Reader, error) {
	otlpCfg := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlpCfg.Endpoint)}
	if otlpCfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpCfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpCfg.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.metricsInterval())), nil
}

// serviceInstanceID returns the configured instance id or a stable default.
func (om *ObservabilityManager) serviceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return "careerflow-1"
}

// metricsInterval returns the configured collection interval for periodic
// readers, defaulting when unset.
func (om *ObservabilityManager) metricsInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// GetMetrics never returns nil; a disabled manager hands out a Metrics
// value whose instruments are all nil.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware wraps handlers with otelhttp server instrumentation, or
// passes them through untouched when observability is disabled.
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer hands out a tracer, a noop one when observability is disabled.
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops every registered provider, combining errors.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AIOperationResult carries an operation's outcome plus its token spend
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses. The field
// layout matches ai.TokenUsage so callers can convert between the two.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens runs fn inside a span and records duration,
// request count, errors and token usage for the operation.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIProcessingTime == nil {
		// Instruments absent (observability disabled), just run the function
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("careerflow.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	started := time.Now()
	result := fn(ctx)
	elapsed := time.Since(started).Seconds()

	var err error
	var usage *TokenUsage
	if result != nil {
		err, usage = result.Error, result.TokenUsage
	}

	if aiMetricsEnabled(om) {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		span.SetAttributes(attrs...)

		if trackAIDuration(om) {
			m.AIProcessingTime.Record(ctx, elapsed, metric.WithAttributes(attrs...))
		}
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		m.recordTokenUsage(ctx, operation, usage, om, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

// recordTokenUsage emits the token histogram and annotates the span. Span
// attributes are set regardless of the metric toggle so traces keep the
// counts for debugging.
func (m *Metrics) recordTokenUsage(ctx context.Context, operation string, usage *TokenUsage, om *ObservabilityManager, span oteltrace.Span) {
	if usage == nil || m.AITokenUsage == nil {
		return
	}

	if trackTokenUsage(om) {
		kinds := []struct {
			kind  string
			count int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		}
		for _, tt := range kinds {
			m.AITokenUsage.Record(ctx, tt.count, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("token_type", tt.kind),
			))
		}
	}

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// The toggle helpers below treat a missing full config as enabled so managers
// built without one (tests, one-shot CLI runs) still record into their
// providers.

func aiMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}

func trackAIDuration(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration
}

func trackTokenUsage(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage
}

func workflowMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.BusinessMetrics.Enabled
}

func trackMatchScores(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.BusinessMetrics.TrackMatchScores
}

func trackRateLimits(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.Infrastructure.TrackRateLimits
}

// RecordWorkflowRun counts one completed workflow run
func (m *Metrics) RecordWorkflowRun(ctx context.Context, success, degraded bool, om *ObservabilityManager) {
	if m.WorkflowRuns == nil || !workflowMetricsEnabled(om) {
		return
	}
	m.WorkflowRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("degraded", degraded),
	))
}

// RecordWorkflowStep records one step's duration and retry count
func (m *Metrics) RecordWorkflowStep(ctx context.Context, step string, seconds float64, success bool, attempts int, om *ObservabilityManager) {
	if !workflowMetricsEnabled(om) {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("success", success),
	)
	if m.WorkflowStepDuration != nil {
		m.WorkflowStepDuration.Record(ctx, seconds, attrs)
	}
	if m.WorkflowStepRetries != nil && attempts > 1 {
		m.WorkflowStepRetries.Add(ctx, int64(attempts-1), attrs)
	}
}

// RecordMatchScore records one scored match
func (m *Metrics) RecordMatchScore(ctx context.Context, score float64, method string, om *ObservabilityManager) {
	if m.MatchScores == nil || !workflowMetricsEnabled(om) || !trackMatchScores(om) {
		return
	}
	m.MatchScores.Record(ctx, score, metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordAnswersGenerated counts generated and failed tailored answers
func (m *Metrics) RecordAnswersGenerated(ctx context.Context, generated, failed int, om *ObservabilityManager) {
	if m.AnswersGenerated == nil || !workflowMetricsEnabled(om) {
		return
	}
	if generated > 0 {
		m.AnswersGenerated.Add(ctx, int64(generated), metric.WithAttributes(attribute.Bool("success", true)))
	}
	if failed > 0 {
		m.AnswersGenerated.Add(ctx, int64(failed), metric.WithAttributes(attribute.Bool("success", false)))
	}
}

// RecordProgressConflict counts a progress update that exhausted its retries
func (m *Metrics) RecordProgressConflict(ctx context.Context, om *ObservabilityManager) {
	if m.ProgressConflicts == nil || !workflowMetricsEnabled(om) {
		return
	}
	m.ProgressConflicts.Add(ctx, 1)
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if m.RateLimitHits == nil || !trackRateLimits(om) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
}

// discardSpanExporter drops spans when no exporter is configured.
type discardSpanExporter struct{}

func (discardSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (discardSpanExporter) Shutdown(context.Context) error                          { return nil }
