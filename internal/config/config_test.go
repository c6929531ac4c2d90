package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	home := t.TempDir()

	cfg, err := Load("", home)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "https://identity.ic0.app", cfg.Delegated.IdentityProviderURL)
	assert.Equal(t, "pollrush", cfg.Delegated.ClientID)
	assert.Equal(t, 5*time.Second, cfg.Delegated.RestoreTimeout)
	assert.Empty(t, cfg.Delegated.RevokePath)
	assert.Equal(t, 30*time.Second, cfg.Delegated.RequestTimeout)
	assert.Empty(t, cfg.Delegated.VerifyKeyFile)
	assert.Equal(t, 10*time.Second, cfg.Session.RevokeTimeout)
	assert.Equal(t, "https://plugwallet.ooo/", cfg.Extension.InstallURL)
	assert.Equal(t, 30*time.Second, cfg.Extension.RequestTimeout)
	assert.Equal(t, filepath.Join(home, ".pollrush", "ledgers.toml"), cfg.Ledgers.Path)
	assert.Equal(t, 10*time.Second, cfg.Ledgers.QueryTimeout)
	assert.Equal(t, 4, cfg.Ledgers.MaxConcurrency)
	assert.Equal(t, "chain", cfg.Credentials.Backend)
	assert.Equal(t, filepath.Join(home, ".pollrush", "credentials"), cfg.Credentials.Dir)
	assert.Equal(t, "127.0.0.1:8787", cfg.Serve.Addr)
}

func TestLoadReadsTOMLFile(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".pollrush")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[log]
level = "debug"

[delegated]
restore_timeout = "2s"
revoke_path = "/revoke"
request_timeout = "7s"
verify_key_file = "~/keys/ii.pem"

[session]
revoke_timeout = "3s"

[ledgers]
path = "~/custom/ledgers.toml"
max_concurrency = 2
`), 0o600))

	cfg, err := Load("", home)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.Delegated.RestoreTimeout)
	assert.Equal(t, "/revoke", cfg.Delegated.RevokePath)
	assert.Equal(t, 7*time.Second, cfg.Delegated.RequestTimeout)
	assert.Equal(t, filepath.Join(home, "keys", "ii.pem"), cfg.Delegated.VerifyKeyFile)
	assert.Equal(t, 3*time.Second, cfg.Session.RevokeTimeout)
	assert.Equal(t, filepath.Join(home, "custom", "ledgers.toml"), cfg.Ledgers.Path)
	assert.Equal(t, 2, cfg.Ledgers.MaxConcurrency)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PRW_EXTENSION_BRIDGE_URL", "http://127.0.0.1:9999")
	t.Setenv("PRW_LOG_FORMAT", "json")

	cfg, err := Load("", home)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.Extension.BridgeURL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), t.TempDir())
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "log level", env: map[string]string{"PRW_LOG_LEVEL": "loud"}},
		{name: "log format", env: map[string]string{"PRW_LOG_FORMAT": "xml"}},
		{name: "bridge scheme", env: map[string]string{"PRW_EXTENSION_BRIDGE_URL": "ftp://127.0.0.1"}},
		{name: "provider host", env: map[string]string{"PRW_DELEGATED_IDENTITY_PROVIDER_URL": "https://"}},
		{name: "concurrency", env: map[string]string{"PRW_LEDGERS_MAX_CONCURRENCY": "0"}},
		{name: "restore timeout", env: map[string]string{"PRW_DELEGATED_RESTORE_TIMEOUT": "0s"}},
		{name: "request timeout", env: map[string]string{"PRW_DELEGATED_REQUEST_TIMEOUT": "0s"}},
		{name: "revoke timeout", env: map[string]string{"PRW_SESSION_REVOKE_TIMEOUT": "-1s"}},
		{name: "credentials backend", env: map[string]string{"PRW_CREDENTIALS_BACKEND": "keychain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", t.TempDir())
			require.Error(t, err)
		})
	}
}
