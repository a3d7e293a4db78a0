package config

import (
	"fmt"
	"time"
)

// ServerConfig holds the HTTP listener settings along with TLS, API
// authentication and rate limiting
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS       TLSConfig       `mapstructure:"tls"`
	APIKeys   []string        `mapstructure:"apiKeys"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS and mutual-TLS settings. Certificate material comes
// either from files on disk or from inline content, typically injected from
// Vault; cert, key and CA each accept exactly one of the two sources.
type TLSConfig struct {
	Mode string `mapstructure:"mode"` // "disabled", "server" or "mutual"

	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"`       // "1.2" (default) or "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`     // empty means Go's defaults
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request" or "verify"

	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
	ServerName         string `mapstructure:"serverName"`

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls automatic certificate reloading
type AutoReloadConfig struct {
	Enabled           bool               `mapstructure:"enabled"`
	CheckInterval     time.Duration      `mapstructure:"checkInterval"`     // expiry check cadence
	PreemptiveRenewal time.Duration      `mapstructure:"preemptiveRenewal"` // renew this long before expiry
	MaxRetries        int                `mapstructure:"maxRetries"`
	RetryDelay        time.Duration      `mapstructure:"retryDelay"`
	FileWatcher       FileWatcherConfig  `mapstructure:"fileWatcher"`
	VaultWatcher      VaultWatcherConfig `mapstructure:"vaultWatcher"`
}

// FileWatcherConfig tunes fsnotify-based certificate watching
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// VaultWatcherConfig tunes Vault polling for rotated certificate material
type VaultWatcherConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PollInterval   time.Duration `mapstructure:"pollInterval"`
	AutoRenew      bool          `mapstructure:"autoRenew"`
	RenewThreshold time.Duration `mapstructure:"renewThreshold"`
	SecretPath     string        `mapstructure:"secretPath"`
}

// RateLimitConfig holds token-bucket rate limiting settings. When both key
// dimensions are enabled, an API key outranks the client IP.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"` // limiters idle this long are swept
}

// ValidateTLSConfig checks mode, certificate sources, client auth and versions
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		if err := validateCertPair(tls, "server mode"); err != nil {
			return err
		}
	case "mutual":
		if err := validateCertPair(tls, "mutual mode"); err != nil {
			return err
		}
		if tls.CAFile == "" && tls.CAContent == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		if tls.CAFile != "" && tls.CAContent != "" {
			return fmt.Errorf("cannot specify both caFile and caContent - choose one")
		}
		if err := validateClientAuthPolicy(tls.ClientAuthPolicy); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	return validateTLSVersion(tls.MinVersion)
}

// validateCertPair checks that certificate and key are each provided from exactly one source
func validateCertPair(tls TLSConfig, mode string) error {
	if (tls.CertFile == "" && tls.CertContent == "") || (tls.KeyFile == "" && tls.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s (provide either files or content)", mode)
	}
	if tls.CertFile != "" && tls.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if tls.KeyFile != "" && tls.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}
	return nil
}

// validateClientAuthPolicy accepts the four tls.ClientAuthType policies
func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil // Empty defaults to require
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

// validateTLSVersion accepts 1.2 and 1.3, the versions the server offers
func validateTLSVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil // Empty defaults to 1.2
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", version)
	}
}
