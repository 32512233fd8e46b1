package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/illarion/boveda/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps Load away from the developer's real configuration.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	t.Setenv(EnvConfigFile, "")
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".boveda", "vault.db"), c.Vault.Path)
	assert.Equal(t, 8, c.Security.MinPassphraseLength)
	assert.Equal(t, 5*time.Minute, c.Security.IdleTimeout)
	assert.Equal(t, 10*time.Second, c.Security.IdleCheckInterval)
	assert.Equal(t, remote.KindNone, c.Remote.Kind)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, 20, c.Server.Burst)
	assert.Equal(t, 8, c.Policy().MinLength)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
vault:
  path: /tmp/v.db
security:
  min_passphrase_length: 12
  idle_timeout: 1m
remote:
  kind: http
  url: https://sync.example.com
  timeout: 3s
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/v.db", c.Vault.Path)
	assert.Equal(t, 12, c.Security.MinPassphraseLength)
	assert.Equal(t, time.Minute, c.Security.IdleTimeout)

	rc := c.RemoteStore()
	assert.Equal(t, remote.KindHTTP, rc.Kind)
	assert.Equal(t, "https://sync.example.com", rc.URL)
	assert.Equal(t, 3*time.Second, rc.Timeout)
}

func TestLoadSearchesUserConfigDir(t *testing.T) {
	isolate(t)
	configDir, err := os.UserConfigDir()
	require.NoError(t, err)
	writeFile(t, filepath.Join(configDir, "boveda", "boveda.yaml"), "log:\n  level: debug\n")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadConfigEnvVariable(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "elsewhere.yaml")
	writeFile(t, path, "server:\n  addr: 127.0.0.1:9000\n")
	t.Setenv(EnvConfigFile, path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", c.Server.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "boveda.yaml")
	writeFile(t, path, "remote:\n  kind: http\n")
	t.Setenv("BOVEDA_REMOTE_KIND", "s3")
	t.Setenv("BOVEDA_SECURITY_IDLE_TIMEOUT", "2m")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s3", c.Remote.Kind)
	assert.Equal(t, 2*time.Minute, c.Security.IdleTimeout)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "vault: [unclosed\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)

	bad := c
	bad.Security.MinPassphraseLength = 0
	assert.Error(t, bad.Validate())

	bad = c
	bad.Security.IdleCheckInterval = time.Hour
	assert.Error(t, bad.Validate())

	bad = c
	bad.Vault.Path = ""
	assert.Error(t, bad.Validate())
}

func TestExpandHome(t *testing.T) {
	home := isolate(t)
	assert.Equal(t, filepath.Join(home, "x"), expandHome("~/x"))
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
