package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"careerflow/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds the Vault connection settings
type VaultConfig struct {
	Enabled   bool         `mapstructure:"enabled"`
	Address   string       `mapstructure:"address"`   // empty means VAULT_ADDR / client default
	Token     string       `mapstructure:"token"`     // inline token, outranks TokenFile
	TokenFile string       `mapstructure:"tokenFile"` // file holding the token, trailing whitespace ignored
	Namespace string       `mapstructure:"namespace"`
	Secrets   VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 paths the application reads at startup.
type VaultSecrets struct {
	// APIKeys expects a single "keys" entry holding comma-separated values,
	// e.g. "key1,key2,key3". The first key acts as the primary.
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"`
	TLSCerts  string `mapstructure:"tlsCerts"`
}

// VaultClient wraps the Vault API client with KVv2 helpers and logging.
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient connects to Vault using the supplied configuration and
// verifies the server is reachable. Callers must check VaultConfig.Enabled
// first; constructing a client for a disabled configuration is an error.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("vault integration is not enabled")
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		logger.LogError(err, "Failed to create Vault client")
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, source, err := cfg.resolveToken()
	if err != nil {
		logger.LogError(err, "Failed to resolve Vault token")
		return nil, err
	}
	client.SetToken(token)

	vc := &VaultClient{client: client, config: cfg, logger: logger}
	logger.Debug("Initialized Vault client",
		"address", apiCfg.Address,
		"namespace", cfg.Namespace,
		"token_source", source)

	if err := vc.checkHealth(); err != nil {
		return nil, err
	}
	return vc, nil
}

// resolveToken returns the Vault token and where it came from. An inline
// token takes precedence over the token file.
func (c VaultConfig) resolveToken() (token, source string, err error) {
	if c.Token != "" {
		return c.Token, "config", nil
	}
	if c.TokenFile != "" {
		raw, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, "file", nil
		}
	}
	return "", "", fmt.Errorf("vault token is required when vault is enabled")
}

// checkHealth verifies the server responds before any secrets are read.
func (vc *VaultClient) checkHealth() error {
	health, err := vc.client.Sys().Health()
	if err != nil {
		vc.logger.LogError(err, "Failed to connect to Vault", "address", vc.config.Address)
		return fmt.Errorf("failed to connect to vault: %w", err)
	}

	vc.logger.Info("Connected to Vault",
		"address", vc.config.Address,
		"version", health.Version,
		"sealed", health.Sealed,
		"cluster_name", health.ClusterName)
	return nil
}

// VaultSecret is a secret read from Vault's KVv2 engine together with its
// metadata version.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 reads a secret from a KVv2 mount. The returned secret is never
// nil when the error is nil; a missing secret is reported as an error.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	raw, err := vc.client.Logical().Read(path)
	if err != nil {
		vc.logger.LogError(err, "Failed to read secret from Vault", "path", path)
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := raw.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := secretVersion(metadata, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// secretVersion extracts the metadata version. The Vault API decodes
// responses with json.Number, but inline and proxied setups can also deliver
// the version as a plain number or string.
func secretVersion(metadata map[string]any, path string) (int64, error) {
	raw, ok := metadata["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}

	switch v := raw.(type) {
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// GetStringSecret retrieves a single string value from a KVv2 secret.
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	raw, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	vc.logger.Debug("String secret retrieved from Vault",
		"path", path,
		"key", key,
		"masked_value", maskValue(value))
	return value, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice.
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return []string{}, nil
	}
	return splitTrimmed(value), nil
}

// maskValue hides the middle of a secret for log output.
func maskValue(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case len(s) > 0:
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets reads the configured secret paths and writes the values
// into cfg. Paths left empty in the configuration are skipped.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	logger.Info("Loading secrets from Vault",
		"api_keys_path", cfg.Vault.Secrets.APIKeys,
		"gemini_key_path", cfg.Vault.Secrets.GeminiKey,
		"tls_certs_path", cfg.Vault.Secrets.TLSCerts)

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	if err := client.applyAPIKeys(cfg); err != nil {
		return err
	}
	if err := client.applyGeminiKey(cfg); err != nil {
		return err
	}
	if err := client.applyTLSMaterial(cfg); err != nil {
		return err
	}

	logger.Info("Finished applying secrets from Vault")
	return nil
}

// applyAPIKeys loads the server API keys used to authenticate callers.
func (vc *VaultClient) applyAPIKeys(cfg *Config) error {
	path := cfg.Vault.Secrets.APIKeys
	if path == "" {
		return nil
	}

	keys, err := vc.GetStringSliceSecret(path, "keys")
	if err != nil {
		return fmt.Errorf("failed to load API keys from vault: %w", err)
	}
	if len(keys) == 0 {
		vc.logger.Warn("No API keys found in Vault", "path", path)
		return nil
	}

	cfg.Server.APIKeys = keys
	vc.logger.Info("API keys loaded from Vault", "count", len(keys))
	return nil
}

// applyGeminiKey loads the Gemini API key and propagates it to every AI
// operation that does not carry its own key.
func (vc *VaultClient) applyGeminiKey(cfg *Config) error {
	path := cfg.Vault.Secrets.GeminiKey
	if path == "" {
		return nil
	}

	key, err := vc.GetStringSecret(path, "api_key")
	if err != nil {
		return fmt.Errorf("failed to load Gemini API key from vault: %w", err)
	}
	if key == "" {
		vc.logger.Warn("Empty Gemini API key found in Vault", "path", path)
		return nil
	}

	applyGeminiKeyToConfig(cfg, key)
	vc.logger.Info("Gemini API key loaded from Vault and applied to all AI configurations")
	return nil
}

// applyGeminiKeyToConfig sets the shared key and fills in any per-operation
// key that is still empty.
func applyGeminiKeyToConfig(cfg *Config, geminiKey string) {
	cfg.AI.APIKey = geminiKey
	if cfg.AI.Match.APIKey == "" {
		cfg.AI.Match.APIKey = geminiKey
	}
	if cfg.AI.Answer.APIKey == "" {
		cfg.AI.Answer.APIKey = geminiKey
	}
	if cfg.AI.Insights.APIKey == "" {
		cfg.AI.Insights.APIKey = geminiKey
	}
}

// applyTLSMaterial loads PEM content for the server TLS settings. The secret
// is validated before anything is copied so a bad layout cannot leave the
// config half applied.
func (vc *VaultClient) applyTLSMaterial(cfg *Config) error {
	path := cfg.Vault.Secrets.TLSCerts
	if path == "" {
		return nil
	}

	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
	}
	if err := rejectTLSFileFields(secret); err != nil {
		vc.logger.LogError(err, "Vault TLS secret uses an unsupported layout", "path", path)
		return err
	}

	loaded := copyTLSContent(secret, &cfg.Server.TLS)
	vc.logger.Info("TLS certificates loaded from Vault", "certificates_loaded", loaded)
	return nil
}

// copyTLSContent copies PEM entries from the secret into the TLS config and
// reports how many fields were set. Missing, empty, and non-string values
// are skipped.
func copyTLSContent(secret *VaultSecret, tls *TLSConfig) int {
	fields := []struct {
		key string
		dst *string
	}{
		{"cert", &tls.CertContent},
		{"key", &tls.KeyContent},
		{"ca", &tls.CAContent},
	}

	loaded := 0
	for _, f := range fields {
		if content, ok := secret.Data[f.key].(string); ok && content != "" {
			*f.dst = content
			loaded++
		}
	}
	return loaded
}

// rejectTLSFileFields fails when a secret still uses the old *_file layout,
// which stored filesystem paths instead of PEM content.
func rejectTLSFileFields(secret *VaultSecret) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, ok := secret.Data[field]; ok {
			return fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported, store certificate content in '%s' instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}
	return nil
}
