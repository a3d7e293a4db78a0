package server

import (
	"fmt"
	"sync"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
)

// VaultClientInterface is the slice of the Vault client the watcher and the
// certificate manager need, kept narrow so tests can fake it
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// CertificateData holds certificate material fetched from Vault
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// VaultReloadCallback receives new certificate material, or the error that
// prevented fetching it
type VaultReloadCallback func(data *CertificateData, err error)

// VaultWatcher polls a KV v2 secret and reports new certificate material
// whenever the secret's version advances. Version comparison keeps the
// common case cheap: unchanged secrets cost one metadata read per poll.
type VaultWatcher struct {
	mu sync.RWMutex

	client       VaultClientInterface
	secretPath   string
	pollInterval time.Duration
	onReload     VaultReloadCallback
	logger       *errors.Logger

	// quit is created fresh on every Start so the watcher can be stopped
	// and started again
	quit        chan struct{}
	running     bool
	seenVersion int64
}

// NewVaultWatcher creates a watcher over the given secret path. A
// non-positive poll interval defaults to one minute.
func NewVaultWatcher(client VaultClientInterface, secretPath string, pollInterval time.Duration, onReload VaultReloadCallback, logger *errors.Logger) *VaultWatcher {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onReload:     onReload,
		logger:       logger,
	}
}

// Start launches the poll loop
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if vw.running {
		return fmt.Errorf("vault watcher already started")
	}
	vw.quit = make(chan struct{})
	vw.running = true
	go vw.run(vw.quit)

	vw.logger.Info("Vault watcher started",
		"secret_path", vw.secretPath,
		"poll_interval", vw.pollInterval)
	return nil
}

// Stop halts the poll loop. Stopping a watcher that never started is a
// no-op, and a stopped watcher may be started again.
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if !vw.running {
		return nil
	}
	vw.running = false
	close(vw.quit)

	vw.logger.Info("Vault watcher stopped")
	return nil
}

// run polls on a fixed ticker until Stop is called. The stop channel is
// passed in rather than read from the struct so a restart cannot race the
// previous run's goroutine.
func (vw *VaultWatcher) run(stop <-chan struct{}) {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			vw.poll()
		}
	}
}

// poll reads the secret once and fires the callback if its version moved
func (vw *VaultWatcher) poll() {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		vw.logger.LogError(err, "Failed to check Vault for updates", "secret_path", vw.secretPath)
		return
	}

	vw.mu.Lock()
	changed := secret.Version > vw.seenVersion
	if changed {
		vw.seenVersion = secret.Version
	}
	vw.mu.Unlock()

	if !changed {
		return
	}

	vw.logger.Info("Vault secret changed, delivering new certificate data",
		"secret_path", vw.secretPath,
		"version", secret.Version)
	vw.onReload(certificateDataFrom(secret), nil)
}

// certificateDataFrom extracts the TLS material keys from a secret payload.
// Missing keys leave fields empty; the consumer keeps its previous value.
func certificateDataFrom(secret *config.VaultSecret) *CertificateData {
	data := &CertificateData{}
	if v, ok := secret.Data["cert"].(string); ok {
		data.CertContent = v
	}
	if v, ok := secret.Data["key"].(string); ok {
		data.KeyContent = v
	}
	if v, ok := secret.Data["ca"].(string); ok {
		data.CAContent = v
	}
	return data
}

// Status summarizes the watcher state for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.seenVersion,
	}
}
