package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/boveda/internal/config"
	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/keyring"
	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/session"
	"github.com/illarion/boveda/internal/storage"
	"github.com/illarion/boveda/internal/syncer"
	"github.com/illarion/boveda/internal/vault"
)

// App wires the local slot, the optional remote and the session manager
// for one command invocation.
type App struct {
	Config   config.Config
	Log      logging.Logger
	Storage  *storage.Storage
	DeviceID string
	Store    *vault.Store
	Remote   remote.Store
	Engine   *syncer.Engine
	Manager  *session.Manager
}

// AppOptions adjusts NewApp for long-running commands.
type AppOptions struct {
	OnIdleLock func()
	// Clock drives record timestamps and the idle watcher. Nil means the wall clock.
	Clock session.Clock
}

// NewApp opens everything cfg describes. Close must be called.
func NewApp(ctx context.Context, cfg config.Config, log logging.Logger, opts AppOptions) (*App, error) {
	st, err := storage.Open(cfg.Vault.Path)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Storage: st}
	a.DeviceID, err = st.GetOrCreateDeviceID()
	if err != nil {
		a.Close()
		return nil, err
	}

	storeOpts := []vault.Option{vault.WithPolicy(cfg.Policy())}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, vault.WithClock(opts.Clock.Now))
	}
	a.Store = vault.NewStore(storeOpts...)

	a.Remote, err = remote.Open(ctx, cfg.RemoteStore(), log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}

	mopts := session.Options{
		IdleTimeout:   cfg.Security.IdleTimeout,
		CheckInterval: cfg.Security.IdleCheckInterval,
		Logger:        log,
		OnIdleLock:    opts.OnIdleLock,
		Clock:         opts.Clock,
	}
	if a.Remote != nil {
		a.Engine = syncer.New(a.Remote, a.Store, a.DeviceID, log, syncer.WithPushTimeout(cfg.Remote.Timeout))
		mopts.Syncer = a.Engine
	}

	a.Manager, err = session.NewManager(st, a.Store, mopts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenApp loads the configuration and opens the App, exiting on failure.
func OpenApp(ctx context.Context, opts AppOptions) *App {
	cfg, log := LoadConfigOrExit()
	a, err := NewApp(ctx, cfg, log, opts)
	if err != nil {
		HandleError(err)
	}
	return a
}

// LoadConfigOrExit loads the configuration and builds the logger.
func LoadConfigOrExit() (config.Config, logging.Logger) {
	cfg, err := config.Load("")
	if err != nil {
		HandleError(err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		HandleError(err)
	}
	return cfg, log
}

// Close locks the vault, waits for pending pushes and releases files.
func (a *App) Close() {
	if a.Manager != nil {
		a.Manager.Lock()
	}
	if a.Engine != nil {
		a.Engine.Wait()
	}
	if c, ok := a.Remote.(io.Closer); ok {
		c.Close()
	}
	if a.Storage != nil {
		a.Storage.Close()
	}
}

// Unlock unlocks the vault with the cached, environment or typed
// passphrase. A stale keyring entry is removed and the user is asked once.
func (a *App) Unlock(ctx context.Context) error {
	passphrase, source, err := GetPassphrase("Enter passphrase: ", a.DeviceID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(passphrase)

	err = a.Manager.Unlock(ctx, passphrase)
	if errors.Is(err, vault.ErrAuthentication) && source == SourceKeyring {
		fmt.Fprintln(os.Stderr, "Cached passphrase no longer works, removing it from the keyring")
		keyring.DeletePassphrase(a.DeviceID)

		retry, rerr := ReadPassphrase("Enter passphrase: ")
		if rerr != nil {
			return rerr
		}
		defer crypto.ClearBytes(retry)
		err = a.Manager.Unlock(ctx, retry)
	}
	if err != nil {
		return err
	}
	a.warnOffline()
	return nil
}

// UnlockOrExit is like Unlock but exits on error
func (a *App) UnlockOrExit(ctx context.Context) {
	if err := a.Unlock(ctx); err != nil {
		a.Close()
		HandleError(err)
	}
}

// Fail closes the App and reports err.
func (a *App) Fail(err error) {
	a.Close()
	HandleError(err)
}

func (a *App) warnOffline() {
	if st := a.Manager.SyncStatus(); st.State == syncer.Offline && st.LastError != nil {
		fmt.Fprintf(os.Stderr, "warning: working offline: %s\n", st.LastError)
	}
}

// HandleError prints a user-facing message for err and exits
func HandleError(err error) {
	fmt.Fprint(os.Stderr, errorMessage(err))
	os.Exit(1)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNoVault):
		return "Error: no vault found\nRun 'boveda init' first\n"
	case errors.Is(err, session.ErrVaultExists):
		return "Error: a vault already exists on this device\nUse 'boveda import' to replace it with another device's vault\n"
	case errors.Is(err, vault.ErrAuthentication):
		return "Error: incorrect passphrase\n"
	case errors.Is(err, session.ErrLocked):
		return "Error: vault is locked\n"
	case errors.Is(err, vault.ErrFormat):
		return fmt.Sprintf("Error: %s\nThe data is damaged or was not produced by boveda\n", err)
	default:
		return fmt.Sprintf("Error: %s\n", err)
	}
}
