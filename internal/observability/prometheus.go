package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"careerflow/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig holds the scrape endpoint settings
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string // scrape path, "/metrics" when empty
	Port     string // dedicated listener port, "9090" when empty
}

// SetupPrometheusExporter creates the Prometheus metrics reader and the mux
// serving the scrape endpoint. Disabled config returns all nils.
func SetupPrometheusExporter(cfg PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	// promhttp serves the default registry, which the OTel exporter
	// registers into
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.Handler())

	return exporter, mux, nil
}

// StartPrometheusServer serves the scrape endpoint on its own listener so
// metrics stay reachable independent of the API server's TLS mode
func StartPrometheusServer(mux *http.ServeMux, port string) error {
	if mux == nil {
		return nil
	}

	if port == "" {
		port = "9090"
	}
	addr := ":" + port

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
		// Header timeout bounds slow-header clients on the scrape port
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	fmt.Printf("Starting Prometheus metrics server on http://localhost%s\n", addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Prometheus listener failed: %v\n", err)
		}
	}()

	return nil
}

// GetPrometheusConfig maps the app config onto Prometheus exporter settings
func GetPrometheusConfig(cfg *config.Config) PrometheusConfig {
	return PrometheusConfig{
		Enabled:  cfg.Observability.Prometheus.Enabled,
		Endpoint: cfg.Observability.Prometheus.Endpoint,
		Port:     cfg.Observability.Prometheus.Port,
	}
}
