package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CertificateManager owns the server's TLS material and keeps it fresh. It
// loads certificates from files or from Vault-provided content, swaps them
// atomically when a watcher reports a change, and refuses to hand out
// expired certificates during handshakes.
type CertificateManager struct {
	mu sync.RWMutex

	serverCert   *tls.Certificate
	serverExpiry time.Time
	caCertPool   *x509.CertPool

	// Reload bookkeeping, guarded by mu
	stats CertificateMetrics

	fileWatcher  *CertWatcher
	vaultWatcher *VaultWatcher

	config      *config.TLSConfig
	autoReload  *config.AutoReloadConfig
	vaultClient VaultClientInterface

	reloadCallbacks []ReloadCallback
	logger          *errors.Logger
	om              *observability.ObservabilityManager

	// Set while a preemptive renewal is in flight so handshakes inside the
	// renewal window do not pile up reloads
	renewing atomic.Bool

	monitorDone chan struct{}
	stopOnce    sync.Once
}

// ReloadCallback receives the outcome of every certificate reload
type ReloadCallback func(success bool, err error)

// CertificateMetrics counts reload outcomes for the TLS status endpoint
type CertificateMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64

	// Most recent reload
	LastReloadTime    time.Time
	LastReloadSuccess bool
	LastReloadError   string
}

// NewCertificateManager wires up a manager over the configured certificate
// sources. Start must be called before the manager serves certificates.
func NewCertificateManager(tlsConfig *config.TLSConfig, autoReload *config.AutoReloadConfig, vaultClient VaultClientInterface, om *observability.ObservabilityManager, logger *errors.Logger) *CertificateManager {
	return &CertificateManager{
		config:      tlsConfig,
		autoReload:  autoReload,
		vaultClient: vaultClient,
		om:          om,
		logger:      logger,
		monitorDone: make(chan struct{}),
	}
}

// Start loads the initial certificates and brings up the configured
// watchers. The initial load is not counted as a reload.
func (cm *CertificateManager) Start() error {
	if err := cm.loadCertificates(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	cm.startExpiryMonitoring()

	if err := cm.startFileWatcher(); err != nil {
		return err
	}
	return cm.startVaultWatcher()
}

// startFileWatcher watches certificate files when file-based material is
// configured and the watcher is enabled
func (cm *CertificateManager) startFileWatcher() error {
	if cm.autoReload == nil || !cm.autoReload.FileWatcher.Enabled {
		return nil
	}
	cfg := cm.config
	if cfg.CertFile == "" && cfg.KeyFile == "" && cfg.CAFile == "" {
		return nil
	}

	watcher, err := NewCertWatcher(
		cfg.CertFile, cfg.KeyFile, cfg.CAFile,
		cm.autoReload.FileWatcher.DebounceDelay,
		func() { cm.reload("file_watcher") },
		cm.logger,
	)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	cm.fileWatcher = watcher
	return nil
}

// startVaultWatcher polls Vault for new certificate content when
// content-based material is configured and the watcher is enabled
func (cm *CertificateManager) startVaultWatcher() error {
	if cm.autoReload == nil || !cm.autoReload.VaultWatcher.Enabled {
		return nil
	}
	if cm.config.CertContent == "" && cm.config.KeyContent == "" && cm.config.CAContent == "" {
		return nil
	}
	if cm.vaultClient == nil {
		cm.logger.Warn("Vault watcher enabled but Vault client is nil")
		return nil
	}

	watcher := NewVaultWatcher(
		cm.vaultClient,
		cm.autoReload.VaultWatcher.SecretPath,
		cm.autoReload.VaultWatcher.PollInterval,
		cm.applyVaultCertificates,
		cm.logger,
	)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start Vault watcher: %w", err)
	}

	cm.vaultWatcher = watcher
	cm.logger.Info("Vault watcher started",
		"secret_path", cm.autoReload.VaultWatcher.SecretPath,
		"poll_interval", cm.autoReload.VaultWatcher.PollInterval)
	return nil
}

// applyVaultCertificates installs new certificate content delivered by the
// Vault watcher and reloads
func (cm *CertificateManager) applyVaultCertificates(data *CertificateData, err error) {
	if err != nil {
		cm.logger.LogError(err, "Failed to fetch new certificate data from Vault")
		return
	}

	cm.mu.Lock()
	if data.CertContent != "" {
		cm.config.CertContent = data.CertContent
	}
	if data.KeyContent != "" {
		cm.config.KeyContent = data.KeyContent
	}
	if data.CAContent != "" {
		cm.config.CAContent = data.CAContent
	}
	cm.mu.Unlock()

	cm.reload("vault_watcher")
}

// Stop shuts down the expiry monitor and the watchers. Both watchers are
// stopped even when the first one fails.
func (cm *CertificateManager) Stop() error {
	cm.stopOnce.Do(func() { close(cm.monitorDone) })

	var errs []error
	if cm.fileWatcher != nil {
		if err := cm.fileWatcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("file watcher: %w", err))
		}
	}
	if cm.vaultWatcher != nil {
		if err := cm.vaultWatcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("vault watcher: %w", err))
		}
	}
	if err := stderrors.Join(errs...); err != nil {
		cm.logger.LogError(err, "Failed to stop certificate watchers")
		return err
	}

	cm.logger.Info("Certificate manager stopped")
	return nil
}

// GetServerCertificate returns the current server certificate for TLS
// handshakes. An expired certificate fails the handshake rather than being
// served; a certificate inside the renewal window triggers one background
// renewal attempt.
func (cm *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	cert, expiry := cm.serverCert, cm.serverExpiry
	cm.mu.RUnlock()

	if cert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if time.Now().After(expiry) {
		cm.logger.LogError(fmt.Errorf("server certificate expired"), "Server certificate expired",
			"expiry", expiry,
			"server_name", hello.ServerName)
		return nil, fmt.Errorf("server certificate expired")
	}

	cm.maybeRenew(expiry)
	return cert, nil
}

// maybeRenew starts one background reload when the certificate has entered
// the preemptive renewal window.
func (cm *CertificateManager) maybeRenew(expiry time.Time) {
	if cm.autoReload == nil || cm.autoReload.PreemptiveRenewal <= 0 {
		return
	}
	if time.Now().Before(expiry.Add(-cm.autoReload.PreemptiveRenewal)) {
		return
	}
	if !cm.renewing.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer cm.renewing.Store(false)
		cm.logger.Info("Certificate inside renewal window, reloading")
		cm.reload("preemptive_renewal")
	}()
}

// GetCACertPool returns the CA pool backing client verification
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// VerifyPeerCertificate checks the presented client certificate against the
// current CA pool. Installed as the tls.Config callback in mutual mode so a
// rotated CA applies to new handshakes immediately.
func (cm *CertificateManager) VerifyPeerCertificate(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("client presented no certificate")
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("parsing client certificate: %w", err)
	}

	pool := cm.GetCACertPool()
	if pool == nil {
		return fmt.Errorf("no CA pool loaded for client verification")
	}
	if _, err := cert.Verify(x509.VerifyOptions{Roots: pool}); err != nil {
		return fmt.Errorf("client certificate rejected: %w", err)
	}
	return nil
}

// ReloadCertificates triggers a reload outside the watcher paths, for
// operator-initiated rotation
func (cm *CertificateManager) ReloadCertificates() error {
	return cm.reload("manual")
}

// AddReloadCallback registers a callback for reload outcomes. Register before
// Start so no reload goes unobserved.
func (cm *CertificateManager) AddReloadCallback(callback ReloadCallback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.reloadCallbacks = append(cm.reloadCallbacks, callback)
}

// CheckExpiry reports how long the server certificate remains valid
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	expiry := cm.serverExpiry
	cm.mu.RUnlock()

	if expiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(expiry), nil
}

// GetMetrics returns a snapshot of the reload bookkeeping
func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.stats
}

// reload loads fresh certificate material, records the outcome and notifies
// callbacks. The source names what triggered the reload in logs and metrics.
func (cm *CertificateManager) reload(source string) error {
	err := cm.loadCertificates()

	cm.mu.Lock()
	cm.stats.ReloadCount++
	if err == nil {
		cm.stats.ReloadSuccessCount++
		cm.stats.LastReloadTime = time.Now()
		cm.stats.LastReloadSuccess = true
		cm.stats.LastReloadError = ""
	} else {
		cm.stats.ReloadFailureCount++
		cm.stats.LastReloadSuccess = false
		cm.stats.LastReloadError = err.Error()
	}
	callbacks := append([]ReloadCallback(nil), cm.reloadCallbacks...)
	expiry := cm.serverExpiry
	cm.mu.Unlock()

	if err == nil {
		cm.logger.Info("Certificates reloaded",
			"source", source,
			"server_cert_expiry", expiry)
	} else {
		cm.logger.LogError(err, "Failed to reload certificates", "source", source)
	}

	cm.recordReloadMetrics(source, err)

	for _, callback := range callbacks {
		go callback(err == nil, err)
	}
	return err
}

// loadCertificates builds fresh TLS material and swaps it in. Files and PEM
// blocks are parsed before the write lock is taken, so in-flight handshakes
// never wait on disk reads.
func (cm *CertificateManager) loadCertificates() error {
	cm.mu.RLock()
	cfg := *cm.config
	cm.mu.RUnlock()

	cert, expiry, err := buildServerCertificate(&cfg)
	if err != nil {
		return err
	}

	var pool *x509.CertPool
	if cfg.Mode == "mutual" {
		if pool, err = buildCAPool(&cfg); err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.serverCert = cert
	cm.serverExpiry = expiry
	cm.caCertPool = pool
	cm.mu.Unlock()
	return nil
}

// buildServerCertificate assembles the server key pair and reports its
// expiry. Inline content wins over file paths because that is how Vault
// delivers renewed material.
func buildServerCertificate(cfg *config.TLSConfig) (*tls.Certificate, time.Time, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var expiry time.Time
	if len(cert.Certificate) > 0 {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
		}
		expiry = parsed.NotAfter
	}
	return &cert, expiry, nil
}

// buildCAPool assembles the client-verification CA pool from content or file
func buildCAPool(cfg *config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cfg.CAContent != "":
		caCert = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, nil
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// recordReloadMetrics records a reload outcome to OpenTelemetry
func (cm *CertificateManager) recordReloadMetrics(source string, err error) {
	metrics := cm.otelMetrics()
	if metrics == nil || metrics.CertReloadCount == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.String("cert_type", "server"),
	}
	if err == nil {
		attrs = append(attrs, attribute.String("status", "success"))
	} else {
		attrs = append(attrs,
			attribute.String("status", "failure"),
			attribute.String("error", err.Error()))
	}
	metrics.CertReloadCount.Add(context.Background(), 1, metric.WithAttributes(attrs...))

	cm.recordExpiryGauge()
}

// recordExpiryGauge publishes seconds until the server certificate expires
func (cm *CertificateManager) recordExpiryGauge() {
	metrics := cm.otelMetrics()
	if metrics == nil || metrics.CertExpiryTime == nil {
		return
	}

	cm.mu.RLock()
	expiry := cm.serverExpiry
	cm.mu.RUnlock()
	if expiry.IsZero() {
		return
	}

	metrics.CertExpiryTime.Record(context.Background(), time.Until(expiry).Seconds(),
		metric.WithAttributes(attribute.String("cert_type", "server")))
}

// otelMetrics returns the shared metric instruments, or nil when
// observability is disabled
func (cm *CertificateManager) otelMetrics() *observability.Metrics {
	if cm.om == nil {
		return nil
	}
	return cm.om.GetMetrics()
}

// startExpiryMonitoring refreshes the expiry gauge once a minute until the
// manager is stopped
func (cm *CertificateManager) startExpiryMonitoring() {
	if cm.om == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.recordExpiryGauge()
			case <-cm.monitorDone:
				return
			}
		}
	}()

	cm.logger.Info("Certificate expiry monitoring started")
}
