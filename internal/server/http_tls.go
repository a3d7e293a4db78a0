package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"careerflow/internal/config"
	"careerflow/internal/observability"
)

// applyTLSConfig prepares the HTTP server for the configured TLS mode. For the
// server and mutual modes it optionally brings up the certificate manager
// for hot reload, then installs the assembled tls.Config.
func (s *Server) applyTLSConfig(httpServer *http.Server, vaultClient VaultClientInterface, om *observability.ObservabilityManager) error {
	addr := httpServer.Addr

	switch s.TLSConfig.Mode {
	case "disabled":
		fmt.Printf("Starting server on http://%s (TLS disabled)\n", addr)
		return nil
	case "server":
		fmt.Printf("Starting server on https://%s (server-only TLS)\n", addr)
	case "mutual":
		fmt.Printf("Starting server on https://%s (mutual TLS, client certificates required)\n", addr)
	default:
		return fmt.Errorf("unknown TLS mode %q, valid modes are disabled, server and mutual", s.TLSConfig.Mode)
	}

	if err := s.setupCertificateManager(vaultClient, om); err != nil {
		return err
	}
	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("assembling TLS config: %w", err)
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// setupCertificateManager brings up the certificate manager when auto-reload
// is enabled. The reload callback is registered before the watchers start so
// no reload can slip by unlogged.
func (s *Server) setupCertificateManager(vaultClient VaultClientInterface, om *observability.ObservabilityManager) error {
	if !s.TLSConfig.AutoReload.Enabled {
		return nil
	}

	certManager := NewCertificateManager(&s.TLSConfig, &s.TLSConfig.AutoReload, vaultClient, om, s.Logger)
	certManager.AddReloadCallback(func(success bool, err error) {
		if !success {
			s.Logger.LogError(err, "TLS certificate reload failed")
			return
		}
		s.Logger.Info("Reloaded TLS certificates")
	})

	if err := certManager.Start(); err != nil {
		return fmt.Errorf("starting certificate manager: %w", err)
	}
	s.CertificateManager = certManager

	sources := make([]string, 0, 2)
	if s.TLSConfig.AutoReload.FileWatcher.Enabled {
		sources = append(sources, "certificate files")
	}
	if s.TLSConfig.AutoReload.VaultWatcher.Enabled {
		sources = append(sources, "vault")
	}
	fmt.Printf("TLS auto-reload: enabled, watching %s\n", strings.Join(sources, " and "))

	return nil
}

// buildVaultClient creates a Vault client when the Vault watcher is
// enabled. Watching certificates requires the Vault integration itself.
func (s *Server) buildVaultClient() (VaultClientInterface, error) {
	if !s.TLSConfig.AutoReload.VaultWatcher.Enabled {
		return nil, nil
	}
	if !s.AppConfig.Vault.Enabled {
		return nil, fmt.Errorf("TLS vault watcher requires vault integration to be enabled")
	}

	vc, err := config.NewVaultClient(s.AppConfig.Vault, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating Vault client for certificate watching: %w", err)
	}
	return vc, nil
}

// buildTLSConfig assembles the tls.Config for the configured mode. With a
// certificate manager present the certificate callbacks route through it so
// reloads take effect without dropping the listener; otherwise material is
// loaded once at startup.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:   s.minTLSVersion(),
		CipherSuites: s.cipherSuiteIDs(),
	}

	if s.CertificateManager != nil {
		tlsConfig.GetCertificate = s.CertificateManager.GetServerCertificate
		if s.TLSConfig.Mode == "mutual" {
			tlsConfig.VerifyPeerCertificate = s.CertificateManager.VerifyPeerCertificate
		}
	} else {
		cert, _, err := buildServerCertificate(&s.TLSConfig)
		if err != nil {
			return nil, fmt.Errorf("loading server certificate: %w", err)
		}
		if cert == nil {
			return nil, fmt.Errorf("no server certificate configured, set certFile/keyFile or inline content")
		}
		tlsConfig.Certificates = []tls.Certificate{*cert}
	}

	if err := s.configureClientAuth(tlsConfig); err != nil {
		return nil, err
	}

	if s.TLSConfig.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		fmt.Println("WARNING: TLS certificate verification disabled")
	}
	if s.TLSConfig.ServerName != "" {
		tlsConfig.ServerName = s.TLSConfig.ServerName
	}

	return tlsConfig, nil
}

// minTLSVersion maps the configured version string to a tls constant,
// defaulting to TLS 1.2
func (s *Server) minTLSVersion() uint16 {
	if s.TLSConfig.MinVersion == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// configureClientAuth sets up client certificate verification for mutual
// mode; other modes get no client authentication
func (s *Server) configureClientAuth(tlsConfig *tls.Config) error {
	if s.TLSConfig.Mode != "mutual" {
		tlsConfig.ClientAuth = tls.NoClientCert
		return nil
	}

	pool, err := buildCAPool(&s.TLSConfig)
	if err != nil {
		return err
	}
	if pool == nil {
		return fmt.Errorf("mutual TLS needs a client CA, set caFile or caContent")
	}

	tlsConfig.ClientCAs = pool
	tlsConfig.ClientAuth = s.clientAuthPolicy()
	return nil
}

// clientAuthPolicy maps the configured policy name to a tls constant. Mutual
// mode defaults to requiring and verifying a client certificate.
func (s *Server) clientAuthPolicy() tls.ClientAuthType {
	switch s.TLSConfig.ClientAuthPolicy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuiteIDs resolves the configured cipher suite names against the
// suites this runtime supports, dropping names it does not recognize. An
// empty result leaves the choice to crypto/tls.
func (s *Server) cipherSuiteIDs() []uint16 {
	if len(s.TLSConfig.CipherSuites) == 0 {
		return nil
	}

	byName := make(map[string]uint16)
	for _, suite := range tls.CipherSuites() {
		byName[suite.Name] = suite.ID
	}

	ids := make([]uint16, 0, len(s.TLSConfig.CipherSuites))
	for _, name := range s.TLSConfig.CipherSuites {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
