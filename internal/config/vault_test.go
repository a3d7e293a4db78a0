package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"careerflow/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

func TestSecretVersion(t *testing.T) {
	tests := []struct {
		name    string
		version any
		want    int64
		wantErr bool
	}{
		{name: "json number", version: json.Number("42"), want: 42},
		{name: "int64", version: int64(42), want: 42},
		{name: "float64", version: float64(42.0), want: 42},
		{name: "numeric string", version: "42", want: 42},
		{name: "non-numeric string", version: "not-a-number", wantErr: true},
		{name: "malformed json number", version: json.Number("4.5e"), wantErr: true},
		{name: "unsupported type", version: []string{"42"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secretVersion(map[string]any{"version": tt.version}, "test/path")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing version field", func(t *testing.T) {
		_, err := secretVersion(map[string]any{"created_time": "2025-01-01T00:00:00Z"}, "test/path")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing 'version'")
	})
}

// The shared key always lands in the global slot, but a per-operation key set
// explicitly in the config must survive the Vault overlay.
func TestApplyGeminiKeyToConfig(t *testing.T) {
	t.Run("fills all empty slots", func(t *testing.T) {
		config := &Config{}
		applyGeminiKeyToConfig(config, "vault-key")

		assert.Equal(t, "vault-key", config.AI.APIKey)
		assert.Equal(t, "vault-key", config.AI.Match.APIKey)
		assert.Equal(t, "vault-key", config.AI.Answer.APIKey)
		assert.Equal(t, "vault-key", config.AI.Insights.APIKey)
	})

	t.Run("keeps explicit operation keys", func(t *testing.T) {
		config := &Config{}
		config.AI.Match.APIKey = "match-specific-key"
		applyGeminiKeyToConfig(config, "vault-key")

		assert.Equal(t, "vault-key", config.AI.APIKey)
		assert.Equal(t, "match-specific-key", config.AI.Match.APIKey)
		assert.Equal(t, "vault-key", config.AI.Answer.APIKey)
		assert.Equal(t, "vault-key", config.AI.Insights.APIKey)
	})
}

func TestCopyTLSContent(t *testing.T) {
	certPEM := "-----BEGIN CERTIFICATE-----\ntest-cert\n-----END CERTIFICATE-----"

	tests := []struct {
		name     string
		data     map[string]any
		want     int
		wantCert string
		wantKey  string
		wantCA   string
	}{
		{name: "all fields present", data: map[string]any{"cert": certPEM, "key": "key-content", "ca": "ca-content"}, want: 3, wantCert: certPEM, wantKey: "key-content", wantCA: "ca-content"},
		{name: "cert only", data: map[string]any{"cert": certPEM}, want: 1, wantCert: certPEM},
		{name: "empty values skipped", data: map[string]any{"cert": "", "key": ""}, want: 0},
		{name: "unknown keys ignored", data: map[string]any{"other": "value"}, want: 0},
		{name: "non-string values skipped", data: map[string]any{"cert": 123}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tlsConfig TLSConfig
			got := copyTLSContent(&VaultSecret{Data: tt.data}, &tlsConfig)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCert, tlsConfig.CertContent)
			assert.Equal(t, tt.wantKey, tlsConfig.KeyContent)
			assert.Equal(t, tt.wantCA, tlsConfig.CAContent)
		})
	}
}

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault-token")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestResolveToken(t *testing.T) {
	t.Run("inline token", func(t *testing.T) {
		token, source, err := VaultConfig{Token: "direct-token"}.resolveToken()
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
		assert.Equal(t, "config", source)
	})

	t.Run("inline token wins over file", func(t *testing.T) {
		cfg := VaultConfig{Token: "direct-token", TokenFile: "/nonexistent/token/file"}
		token, source, err := cfg.resolveToken()
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
		assert.Equal(t, "config", source)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		cfg := VaultConfig{TokenFile: writeTokenFile(t, "  file-token  \n")}
		token, source, err := cfg.resolveToken()
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
		assert.Equal(t, "file", source)
	})

	t.Run("unreadable token file", func(t *testing.T) {
		_, _, err := VaultConfig{TokenFile: "/nonexistent/token/file"}.resolveToken()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read vault token file")
	})

	t.Run("no token configured", func(t *testing.T) {
		_, _, err := VaultConfig{}.resolveToken()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})

	t.Run("whitespace-only token file", func(t *testing.T) {
		cfg := VaultConfig{TokenFile: writeTokenFile(t, "   \n  \n")}
		_, _, err := cfg.resolveToken()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

func TestRejectTLSFileFields(t *testing.T) {
	tests := []struct {
		name      string
		data      map[string]any
		wantField string
	}{
		{name: "content layout accepted", data: map[string]any{"cert": "cert-content", "key": "key-content", "ca": "ca-content"}},
		{name: "cert_file rejected", data: map[string]any{"cert_file": "/path/to/cert"}, wantField: "cert_file"},
		{name: "key_file rejected", data: map[string]any{"key_file": "/path/to/key"}, wantField: "key_file"},
		{name: "ca_file rejected", data: map[string]any{"ca_file": "/path/to/ca"}, wantField: "ca_file"},
		{name: "file field rejected even alongside content", data: map[string]any{"cert": "cert-content", "cert_file": "/path/to/cert"}, wantField: "cert_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rejectTLSFileFields(&VaultSecret{Data: tt.data})
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantField)
			assert.Contains(t, err.Error(), "no longer supported")
		})
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "long value keeps edges", input: "sk-abcdefghijklmnop", expected: "sk-a****mnop"},
		{name: "short value fully masked", input: "secret", expected: "****"},
		{name: "empty value", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskValue(tt.input))
		})
	}
}

func TestNewVaultClientDisabled(t *testing.T) {
	_, err := NewVaultClient(VaultConfig{Enabled: false}, newMockLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

// ApplyVaultSecrets with vault disabled is a no-op, not an error.
func TestApplyVaultSecretsDisabled(t *testing.T) {
	config := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(config, newMockLogger()))
}
