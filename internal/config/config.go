// Package config provides viper-based configuration for the wallet CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PRW"
	dirName   = ".pollrush"
)

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Delegated   DelegatedConfig   `mapstructure:"delegated"`
	Extension   ExtensionConfig   `mapstructure:"extension"`
	Ledgers     LedgersConfig     `mapstructure:"ledgers"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Session     SessionConfig     `mapstructure:"session"`
	Serve       ServeConfig       `mapstructure:"serve"`
}

type SessionConfig struct {
	// RevokeTimeout bounds the revocation of a session a provider granted
	// after its attempt was superseded.
	RevokeTimeout time.Duration `mapstructure:"revoke_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DelegatedConfig struct {
	IdentityProviderURL string        `mapstructure:"identity_provider_url"`
	ClientID            string        `mapstructure:"client_id"`
	ListenAddr          string        `mapstructure:"listen_addr"`
	AuthorizePath       string        `mapstructure:"authorize_path"`
	TokenPath           string        `mapstructure:"token_path"`
	RevokePath          string        `mapstructure:"revoke_path"`
	RestoreTimeout      time.Duration `mapstructure:"restore_timeout"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	// VerifyKeyFile is a PEM public key; when set, stored delegations must
	// carry a valid signature.
	VerifyKeyFile string `mapstructure:"verify_key_file"`
}

type ExtensionConfig struct {
	BridgeURL      string        `mapstructure:"bridge_url"`
	InstallURL     string        `mapstructure:"install_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LedgersConfig struct {
	Path           string        `mapstructure:"path"`
	BaseURL        string        `mapstructure:"base_url"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

type CredentialsConfig struct {
	// Backend is chain (pass, then file), pass, or file.
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from cfgFile, or ~/.pollrush/config.toml when
// empty, then applies PRW_* environment overrides. A missing default file is
// not an error.
func Load(cfgFile, homeDir string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join(homeDir, dirName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, homeDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Ledgers.Path = expandHome(cfg.Ledgers.Path, homeDir)
	cfg.Credentials.Dir = expandHome(cfg.Credentials.Dir, homeDir)
	cfg.Delegated.VerifyKeyFile = expandHome(cfg.Delegated.VerifyKeyFile, homeDir)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	base := filepath.Join(homeDir, dirName)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("delegated.identity_provider_url", "https://identity.ic0.app")
	v.SetDefault("delegated.client_id", "pollrush")
	v.SetDefault("delegated.listen_addr", "127.0.0.1:0")
	v.SetDefault("delegated.authorize_path", "/authorize")
	v.SetDefault("delegated.token_path", "/token")
	v.SetDefault("delegated.revoke_path", "")
	v.SetDefault("delegated.restore_timeout", 5*time.Second)
	v.SetDefault("delegated.request_timeout", 30*time.Second)
	v.SetDefault("delegated.verify_key_file", "")

	v.SetDefault("extension.bridge_url", "http://127.0.0.1:9797")
	v.SetDefault("extension.install_url", "https://plugwallet.ooo/")
	v.SetDefault("extension.request_timeout", 30*time.Second)

	v.SetDefault("ledgers.path", filepath.Join(base, "ledgers.toml"))
	v.SetDefault("ledgers.base_url", "https://icp-api.io/api/v2/canister")
	v.SetDefault("ledgers.query_timeout", 10*time.Second)
	v.SetDefault("ledgers.max_concurrency", 4)

	v.SetDefault("credentials.backend", "chain")
	v.SetDefault("credentials.dir", filepath.Join(base, "credentials"))

	v.SetDefault("session.revoke_timeout", 10*time.Second)

	v.SetDefault("serve.addr", "127.0.0.1:8787")
}

func validate(cfg *Config) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[cfg.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be console or json)", cfg.Log.Format)
	}

	for key, raw := range map[string]string{
		"delegated.identity_provider_url": cfg.Delegated.IdentityProviderURL,
		"extension.bridge_url":            cfg.Extension.BridgeURL,
		"extension.install_url":           cfg.Extension.InstallURL,
		"ledgers.base_url":                cfg.Ledgers.BaseURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if strings.TrimSpace(cfg.Delegated.ClientID) == "" {
		return fmt.Errorf("delegated.client_id is required")
	}
	if cfg.Delegated.RestoreTimeout <= 0 {
		return fmt.Errorf("delegated.restore_timeout must be positive")
	}
	if cfg.Delegated.RequestTimeout <= 0 {
		return fmt.Errorf("delegated.request_timeout must be positive")
	}
	if cfg.Session.RevokeTimeout <= 0 {
		return fmt.Errorf("session.revoke_timeout must be positive")
	}
	if cfg.Extension.RequestTimeout <= 0 {
		return fmt.Errorf("extension.request_timeout must be positive")
	}
	if cfg.Ledgers.QueryTimeout <= 0 {
		return fmt.Errorf("ledgers.query_timeout must be positive")
	}
	if cfg.Ledgers.MaxConcurrency <= 0 {
		return fmt.Errorf("ledgers.max_concurrency must be positive")
	}
	switch cfg.Credentials.Backend {
	case "chain", "pass", "file":
	default:
		return fmt.Errorf("invalid credentials backend: %s (must be chain, pass, or file)", cfg.Credentials.Backend)
	}
	if strings.TrimSpace(cfg.Serve.Addr) == "" {
		return fmt.Errorf("serve.addr is required")
	}

	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
