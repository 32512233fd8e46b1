package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/illarion/boveda/internal/config"
	"github.com/illarion/boveda/internal/keyring"
	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/session"
	"github.com/illarion/boveda/internal/syncer"
	"github.com/illarion/boveda/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

const testPassphrase = "correcthorse"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Vault: config.VaultConfig{Path: filepath.Join(dir, "vault.db")},
		Security: config.SecurityConfig{
			MinPassphraseLength: 8,
			IdleTimeout:         time.Minute,
			IdleCheckInterval:   time.Second,
		},
		Remote: config.RemoteConfig{Kind: remote.KindNone},
	}
}

func newTestApp(t *testing.T, cfg config.Config, opts AppOptions) *App {
	t.Helper()
	a, err := NewApp(context.Background(), cfg, logging.Discard(), opts)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func createVault(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.Manager.Create([]byte(testPassphrase), []byte(testPassphrase)))
}

// secrets answers readSecret calls in order.
func secrets(values ...string) func(string) ([]byte, error) {
	var mu sync.Mutex
	return func(string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(values) == 0 {
			return nil, errors.New("no more secrets")
		}
		v := values[0]
		values = values[1:]
		return []byte(v), nil
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runShell(t *testing.T, a *App, input string, readSecret func(string) ([]byte, error)) string {
	t.Helper()
	var out bytes.Buffer
	sh := NewShell(a.Manager, strings.NewReader(input), &out, readSecret)
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestNewApp_NoVault(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})

	assert.Equal(t, session.NoVault, a.Manager.State())
	assert.Len(t, a.DeviceID, 32)
	assert.Nil(t, a.Remote)
	assert.Nil(t, a.Engine)
	assert.Equal(t, 8, a.Store.Policy().MinLength)
}

func TestNewApp_DeviceIDIsStable(t *testing.T) {
	cfg := testConfig(t)

	a, err := NewApp(context.Background(), cfg, logging.Discard(), AppOptions{})
	require.NoError(t, err)
	first := a.DeviceID
	createVault(t, a)
	a.Close()

	b := newTestApp(t, cfg, AppOptions{})
	assert.Equal(t, first, b.DeviceID)
	assert.Equal(t, session.Locked, b.Manager.State())
}

func TestNewApp_UnknownRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Remote.Kind = "carrier-pigeon"

	_, err := NewApp(context.Background(), cfg, logging.Discard(), AppOptions{})
	assert.Error(t, err)
}

func TestShell_AddAndList(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	out := runShell(t, a, "add\nMail\nalice\nhttps://mail.example.com\n\nls\nls bank\nexit\n", secrets("s3cret-pass"))

	assert.Contains(t, out, "Added Mail")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "No records")

	records, err := a.Manager.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "s3cret-pass", records[0].Password)
	assert.Equal(t, "https://mail.example.com", records[0].URL)
}

func TestShell_AddGeneratesPassword(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	out := runShell(t, a, "add\nBank\nbob\n\n\n", secrets(""))

	assert.Contains(t, out, "Generated password: ")
	records, err := a.Manager.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Password, vault.DefaultPasswordLength)
}

func TestShell_AddRejectsMissingFields(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	out := runShell(t, a, "add\n\nalice\n\n\nexit\n", secrets("pw"))

	assert.Contains(t, out, "name is required")
	records, err := a.Manager.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestShell_LockedCommandsAskForUnlock(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)
	_, err := a.Manager.Add(vault.RecordInput{Name: "Mail", Username: "alice", Password: "pw"})
	require.NoError(t, err)

	out := runShell(t, a, "lock\nls\nadd\nunlock\nls\nexit\n", secrets(testPassphrase))

	assert.Contains(t, out, "Vault locked")
	assert.Contains(t, out, "boveda (locked)> ")
	assert.Contains(t, out, "Error: vault is locked")
	assert.Contains(t, out, "Type 'unlock' to continue.")
	assert.Contains(t, out, "Vault unlocked")
	assert.Contains(t, out, "alice")
	assert.Equal(t, session.Unlocked, a.Manager.State())
}

func TestShell_WrongPassphraseStaysLocked(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	out := runShell(t, a, "lock\nunlock\nexit\n", secrets("wrong-passphrase"))

	assert.Contains(t, out, "Error: incorrect passphrase")
	assert.Equal(t, session.Locked, a.Manager.State())
}

func TestShell_ShowRevealEditRemove(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)
	rec, err := a.Manager.Add(vault.RecordInput{Name: "Mail", Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	ref := shortID(rec.ID)

	out := runShell(t, a, fmt.Sprintf("show %s\nreveal %s\nexit\n", ref, ref), nil)
	assert.Contains(t, out, "Password:  ********")
	assert.Contains(t, out, "Password:  hunter22")

	out = runShell(t, a, fmt.Sprintf("edit %s\nWebmail\n\n\n\nexit\n", ref), secrets(""))
	assert.Contains(t, out, "Updated Mail")
	got, err := a.Manager.Find(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Webmail", got.Name)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "hunter22", got.Password)

	out = runShell(t, a, fmt.Sprintf("edit %s\n\n\n\n\nexit\n", ref), secrets(""))
	assert.Contains(t, out, "Nothing changed")

	out = runShell(t, a, fmt.Sprintf("rm %s\nrm %s\nexit\n", ref, ref), nil)
	assert.Contains(t, out, "Removed Webmail")
	assert.Contains(t, out, "record not found")
}

func TestShell_Copy(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)
	rec, err := a.Manager.Add(vault.RecordInput{Name: "Mail", Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	var out bytes.Buffer
	var copied string
	sh := NewShell(a.Manager, strings.NewReader("copy "+rec.ID+"\n"), &out, nil)
	sh.copyText = func(s string) error { copied = s; return nil }
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, "hunter22", copied)
	assert.Contains(t, out.String(), "copied to clipboard")
}

func TestShell_GenerateAndUnknown(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	out := runShell(t, a, "gen 12\ngen x\nfrobnicate\nhelp\nquit\n", nil)

	lines := strings.Split(out, "\n")
	require.NotEmpty(t, lines)
	pw := strings.TrimPrefix(lines[0], "boveda> ")
	assert.Len(t, pw, 12)
	assert.Contains(t, out, "length must be a number")
	assert.Contains(t, out, `unknown command "frobnicate"`)
	assert.Contains(t, out, "Commands:")
}

func TestShell_EOFEnds(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	out := runShell(t, a, "status", nil)
	assert.Contains(t, out, "Vault: unlocked")
	assert.Contains(t, out, "Not synced")
}

func TestShell_SyncWithBoltRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Remote = config.RemoteConfig{Kind: remote.KindBolt, Path: filepath.Join(t.TempDir(), "remote.db")}
	a := newTestApp(t, cfg, AppOptions{})
	require.NotNil(t, a.Engine)
	createVault(t, a)
	a.Engine.Wait()

	out := runShell(t, a, "sync\nexit\n", nil)
	assert.Contains(t, out, "Synced at")

	got, err := a.Remote.Get(context.Background(), a.DeviceID)
	require.NoError(t, err)
	local, err := a.Manager.Container()
	require.NoError(t, err)
	assert.True(t, got.Equal(local))
}

func TestApp_IdleLockNotifies(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.IdleTimeout = 30 * time.Millisecond
	cfg.Security.IdleCheckInterval = 5 * time.Millisecond

	var out safeBuffer
	a := newTestApp(t, cfg, AppOptions{
		OnIdleLock: func() { fmt.Fprintln(&out, "Vault locked after inactivity.") },
	})
	createVault(t, a)

	require.Eventually(t, func() bool {
		return a.Manager.State() == session.Locked
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "locked after inactivity")
	}, time.Second, 5*time.Millisecond)
}

type manualTicker struct{ ch chan time.Time }

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {}

// manualClock only moves when Advance is called; each Advance fires the tickers.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) session.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()
	for _, t := range tickers {
		select {
		case t.ch <- now:
		default:
		}
	}
}

func TestShell_ReadOnlyCommandsKeepVaultUnlocked(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.IdleTimeout = 5 * time.Minute
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	a := newTestApp(t, cfg, AppOptions{Clock: clock})
	createVault(t, a)

	var out bytes.Buffer
	sh := NewShell(a.Manager, strings.NewReader(""), &out, nil)
	ctx := context.Background()

	for _, cmd := range []string{"ls", "help", "status"} {
		clock.Advance(2 * time.Minute)
		require.NoError(t, sh.exec(ctx, cmd, nil))
		assert.Never(t, func() bool { return a.Manager.State() != session.Unlocked },
			30*time.Millisecond, 5*time.Millisecond)
	}

	clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return a.Manager.State() == session.Locked },
		time.Second, 5*time.Millisecond)
}

func TestPrintDevice(t *testing.T) {
	a := newTestApp(t, testConfig(t), AppOptions{})

	var out bytes.Buffer
	printDevice(&out, a)

	assert.Contains(t, out.String(), "Device id: "+a.DeviceID)
	assert.Contains(t, out.String(), "(no vault)")
	assert.Contains(t, out.String(), "Created:   ")
	assert.Contains(t, out.String(), "Remote:    disabled")
}

func TestAppUnlock_Sources(t *testing.T) {
	gokeyring.MockInit()
	a := newTestApp(t, testConfig(t), AppOptions{})
	createVault(t, a)

	t.Run("env", func(t *testing.T) {
		a.Manager.Lock()
		t.Setenv(EnvPassphrase, testPassphrase)
		require.NoError(t, a.Unlock(context.Background()))
		assert.Equal(t, session.Unlocked, a.Manager.State())
	})

	t.Run("keyring", func(t *testing.T) {
		a.Manager.Lock()
		require.NoError(t, keyring.SavePassphrase(a.DeviceID, []byte(testPassphrase)))
		t.Cleanup(func() { keyring.DeletePassphrase(a.DeviceID) })
		require.NoError(t, a.Unlock(context.Background()))
		assert.Equal(t, session.Unlocked, a.Manager.State())
	})

	t.Run("stale keyring falls back to prompt", func(t *testing.T) {
		a.Manager.Lock()
		require.NoError(t, keyring.SavePassphrase(a.DeviceID, []byte("outdated-pass")))
		withSecrets(t, testPassphrase)

		require.NoError(t, a.Unlock(context.Background()))
		assert.Equal(t, session.Unlocked, a.Manager.State())
		assert.False(t, keyring.HasPassphrase(a.DeviceID))
	})

	t.Run("wrong prompt", func(t *testing.T) {
		a.Manager.Lock()
		withSecrets(t, "wrong-passphrase")

		err := a.Unlock(context.Background())
		assert.ErrorIs(t, err, vault.ErrAuthentication)
		assert.Equal(t, session.Locked, a.Manager.State())
	})
}

// withSecrets replaces the terminal reader for the duration of the test.
func withSecrets(t *testing.T, values ...string) {
	t.Helper()
	next := secrets(values...)
	orig := readSecret
	readSecret = func() ([]byte, error) { return next("") }
	t.Cleanup(func() { readSecret = orig })
}

func TestGetPassphrase_Order(t *testing.T) {
	gokeyring.MockInit()
	const device = "00112233445566778899aabbccddeeff"

	withSecrets(t, "typed-pass")
	p, source, err := GetPassphrase("? ", device)
	require.NoError(t, err)
	assert.Equal(t, SourcePrompt, source)
	assert.Equal(t, "typed-pass", string(p))

	require.NoError(t, keyring.SavePassphrase(device, []byte("cached-pass")))
	t.Cleanup(func() { keyring.DeletePassphrase(device) })
	p, source, err = GetPassphrase("? ", device)
	require.NoError(t, err)
	assert.Equal(t, SourceKeyring, source)
	assert.Equal(t, "cached-pass", string(p))

	t.Setenv(EnvPassphrase, "env-pass")
	p, source, err = GetPassphrase("? ", device)
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "env-pass", string(p))
}

func TestGetNewPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	withSecrets(t, "first-pass", "second-pass")
	p, c, err := GetNewPassphrase("? ")
	require.NoError(t, err)
	assert.Equal(t, "first-pass", string(p))
	assert.Equal(t, "second-pass", string(c))

	t.Setenv(EnvPassphrase, "env-pass")
	p, c, err = GetNewPassphrase("? ")
	require.NoError(t, err)
	assert.Equal(t, "env-pass", string(p))
	assert.Equal(t, "env-pass", string(c))
}

func TestResolveID(t *testing.T) {
	records := []vault.Record{
		{ID: "abc12345-0000", Name: "Mail"},
		{ID: "abd99999-0000", Name: "Bank"},
		{ID: "ab", Name: "Short"},
	}

	r, err := resolveID(records, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Mail", r.Name)

	r, err = resolveID(records, "ab")
	require.NoError(t, err)
	assert.Equal(t, "Short", r.Name, "exact match wins over prefixes")

	_, err = resolveID(records, "a")
	assert.ErrorContains(t, err, "matches 3 records")

	_, err = resolveID(records, "zzz")
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = resolveID(records, " ")
	assert.Error(t, err)
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, nil)
	assert.Equal(t, "No records\n", buf.String())

	buf.Reset()
	printRecords(&buf, []vault.Record{{ID: "0123456789abcdef", Name: "Mail", Username: "alice", Password: "secret"}})
	assert.Contains(t, buf.String(), "01234567")
	assert.NotContains(t, buf.String(), "89abcdef")
	assert.NotContains(t, buf.String(), "secret")
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{session.ErrNoVault, "Run 'boveda init' first"},
		{session.ErrVaultExists, "already exists"},
		{fmt.Errorf("unlock: %w", vault.ErrAuthentication), "Error: incorrect passphrase\n"},
		{session.ErrLocked, "Error: vault is locked\n"},
		{fmt.Errorf("%w: bad json", vault.ErrFormat), "damaged"},
		{errors.New("boom"), "Error: boom\n"},
	}
	for _, tt := range tests {
		assert.Contains(t, errorMessage(tt.err), tt.want)
	}
}

func TestReadPackage(t *testing.T) {
	text, err := readPackage("eyJ9", false)
	require.NoError(t, err)
	assert.Equal(t, "eyJ9", text)

	_, err = readPackage("", false)
	assert.Error(t, err)
}

func TestPrintSyncStatusAndPreview(t *testing.T) {
	var buf bytes.Buffer
	printSyncStatus(&buf, syncer.Status{State: syncer.Offline, LastError: errors.New("dial tcp: refused")})
	assert.Equal(t, "Offline: dial tcp: refused\n", buf.String())

	buf.Reset()
	printPreview(&buf, syncer.Preview{Outcome: syncer.PushLocal, LocalUpdated: time.Now()})
	assert.Contains(t, buf.String(), "Remote updated: never")
	assert.Contains(t, buf.String(), "push local")

	buf.Reset()
	printPreview(&buf, syncer.Preview{
		Outcome:       syncer.AdoptRemote,
		RemoteFound:   true,
		LocalUpdated:  time.Now(),
		RemoteUpdated: time.Now(),
		Diff:          "- Mail\talice\n",
	})
	assert.Contains(t, buf.String(), "adopt remote")
	assert.Contains(t, buf.String(), "- Mail\talice")
}

func TestOpenBackend_DefaultsToBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.db")
	s, err := openBackend(context.Background(), remote.Config{Kind: remote.KindHTTP, Path: path}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.(*remote.Bolt).Close()

	_, err = s.Get(context.Background(), "00112233445566778899aabbccddeeff")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestCompletionScripts(t *testing.T) {
	for _, sh := range []string{"bash", "zsh", "fish"} {
		s, ok := completionScript(sh)
		require.True(t, ok, sh)
		assert.Contains(t, s, "boveda")
		assert.Contains(t, s, "export")
	}
	_, ok := completionScript("tcsh")
	assert.False(t, ok)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}
