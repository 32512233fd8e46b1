// Package config loads boveda settings from defaults, an optional
// boveda.yaml and BOVEDA_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/session"
	"github.com/illarion/boveda/internal/vault"
	"github.com/spf13/viper"
)

// EnvConfigFile names the environment variable holding an explicit config path.
const EnvConfigFile = "BOVEDA_CONFIG"

type Config struct {
	Vault    VaultConfig    `mapstructure:"vault"`
	Security SecurityConfig `mapstructure:"security"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type VaultConfig struct {
	Path string `mapstructure:"path"`
}

type SecurityConfig struct {
	MinPassphraseLength int           `mapstructure:"min_passphrase_length"`
	IdleTimeout         time.Duration `mapstructure:"idle_timeout"`
	IdleCheckInterval   time.Duration `mapstructure:"idle_check_interval"`
}

type RemoteConfig struct {
	Kind      string        `mapstructure:"kind"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Bucket    string        `mapstructure:"bucket"`
	Prefix    string        `mapstructure:"prefix"`
	Endpoint  string        `mapstructure:"endpoint"`
	Region    string        `mapstructure:"region"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	DSN       string        `mapstructure:"dsn"`
	Path      string        `mapstructure:"path"`
}

type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"vault.path":                     filepath.Join("~", ".boveda", "vault.db"),
		"security.min_passphrase_length": vault.DefaultMinPassphraseLength,
		"security.idle_timeout":          session.DefaultIdleTimeout,
		"security.idle_check_interval":   session.DefaultCheckInterval,
		"remote.kind":                    remote.KindNone,
		"remote.url":                     "",
		"remote.timeout":                 15 * time.Second,
		"remote.bucket":                  "boveda",
		"remote.prefix":                  "vaults/",
		"remote.endpoint":                "",
		"remote.region":                  "",
		"remote.access_key":              "",
		"remote.secret_key":              "",
		"remote.use_ssl":                 true,
		"remote.dsn":                     "",
		"remote.path":                    filepath.Join("~", ".boveda", "remote.db"),
		"server.addr":                    ":8443",
		"server.rate_limit":              5.0,
		"server.burst":                   20,
		"log.level":                      "warn",
		"log.format":                     "text",
	}
}

// Load reads the configuration. explicitPath, when non-empty, is the only
// file considered; otherwise BOVEDA_CONFIG, the user config directory and
// the working directory are searched for boveda.yaml.
func Load(explicitPath string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("boveda")
	v.SetConfigType("yaml")

	if explicitPath == "" {
		explicitPath = os.Getenv(EnvConfigFile)
	}
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "boveda"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("boveda")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to parse config: %w", err)
	}

	c.Vault.Path = expandHome(c.Vault.Path)
	c.Remote.Path = expandHome(c.Remote.Path)
	return c, c.Validate()
}

// Validate checks values that would otherwise fail much later.
func (c Config) Validate() error {
	if c.Vault.Path == "" {
		return fmt.Errorf("vault.path must not be empty")
	}
	if c.Security.MinPassphraseLength < 1 {
		return fmt.Errorf("security.min_passphrase_length must be at least 1")
	}
	if c.Security.IdleTimeout <= 0 || c.Security.IdleCheckInterval <= 0 {
		return fmt.Errorf("security.idle_timeout and security.idle_check_interval must be positive")
	}
	if c.Security.IdleCheckInterval > c.Security.IdleTimeout {
		return fmt.Errorf("security.idle_check_interval must not exceed security.idle_timeout")
	}
	return nil
}

// RemoteStore converts the remote section for remote.Open.
func (c Config) RemoteStore() remote.Config {
	r := c.Remote
	return remote.Config{
		Kind:      r.Kind,
		URL:       r.URL,
		Timeout:   r.Timeout,
		Bucket:    r.Bucket,
		Prefix:    r.Prefix,
		Endpoint:  r.Endpoint,
		Region:    r.Region,
		AccessKey: r.AccessKey,
		SecretKey: r.SecretKey,
		UseSSL:    r.UseSSL,
		DSN:       r.DSN,
		Path:      r.Path,
	}
}

// Policy returns the passphrase policy.
func (c Config) Policy() vault.Policy {
	return vault.Policy{MinLength: c.Security.MinPassphraseLength}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
