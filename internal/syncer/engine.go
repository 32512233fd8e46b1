package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/vault"
)

// DefaultPushTimeout bounds a single asynchronous push.
const DefaultPushTimeout = 30 * time.Second

// Engine reconciles and pushes containers for one device key.
type Engine struct {
	remote      remote.Store
	store       *vault.Store
	log         logging.Logger
	now         func() time.Time
	pushTimeout time.Duration

	// pushMu serializes pushes and guards lastPushed.
	pushMu     sync.Mutex
	lastPushed time.Time

	mu       sync.Mutex
	deviceID string
	status   Status

	wg sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for LastSync.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPushTimeout bounds each asynchronous push. Non-positive values keep
// DefaultPushTimeout.
func WithPushTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pushTimeout = d
		}
	}
}

// New creates an Engine. store must be the same vault.Store that produced
// the sessions passed to Reconcile.
func New(r remote.Store, store *vault.Store, deviceID string, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:      r,
		store:       store,
		log:         log.With("component", "syncer"),
		now:         time.Now,
		pushTimeout: DefaultPushTimeout,
		deviceID:    deviceID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DeviceID returns the remote slot key.
func (e *Engine) DeviceID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deviceID
}

// SetDeviceID switches the engine to another remote slot.
func (e *Engine) SetDeviceID(id string) {
	e.pushMu.Lock()
	e.lastPushed = time.Time{}
	e.pushMu.Unlock()

	e.mu.Lock()
	e.deviceID = id
	e.mu.Unlock()
}

// Status returns the current sync indicator.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Reconcile brings sess and the remote slot in line. It returns the session
// to use from now on and whether it was replaced by the remote content.
// Remote failures are logged and reflected in Status, never returned.
func (e *Engine) Reconcile(ctx context.Context, sess *vault.Session) (*vault.Session, bool) {
	id := e.DeviceID()
	local := sess.Container()

	rc, err := e.remote.Get(ctx, id)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		e.log.Info(ctx, "remote vault absent, pushing local", "device", id)
		e.Push(ctx, local)
		return sess, false
	case err != nil:
		e.fail(ctx, err)
		return sess, false
	}

	switch {
	case rc.NewerThan(local):
		adopted, err := e.store.Adopt(sess, rc)
		if err != nil {
			// Different salt lineage or a passphrase changed elsewhere;
			// the local copy stays authoritative here.
			e.log.Warn(ctx, "ignoring remote vault that cannot be opened",
				"device", id, "remote_updated_at", vault.FormatTime(rc.UpdatedAt), "error", err)
			e.setStatus(Idle, err)
			return sess, false
		}
		e.pushMu.Lock()
		if rc.UpdatedAt.After(e.lastPushed) {
			e.lastPushed = rc.UpdatedAt
		}
		e.pushMu.Unlock()
		e.log.Info(ctx, "adopted newer remote vault", "device", id,
			"remote_updated_at", vault.FormatTime(rc.UpdatedAt))
		e.markSynced()
		return adopted, true
	case local.NewerThan(rc):
		e.Push(ctx, local)
		return sess, false
	default:
		e.markSynced()
		return sess, false
	}
}

// Push uploads c synchronously. A container that is not strictly newer than
// the last pushed one is skipped.
func (e *Engine) Push(ctx context.Context, c vault.Container) error {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	if !e.lastPushed.IsZero() && !c.UpdatedAt.After(e.lastPushed) {
		e.log.Debug(ctx, "skipping stale push",
			"updated_at", vault.FormatTime(c.UpdatedAt), "last_pushed", vault.FormatTime(e.lastPushed))
		return nil
	}

	id := e.DeviceID()
	if err := e.remote.Put(ctx, id, c); err != nil {
		if !errors.Is(err, vault.ErrTransport) {
			err = fmt.Errorf("%w: %w", vault.ErrTransport, err)
		}
		e.fail(ctx, err)
		return err
	}

	e.lastPushed = c.UpdatedAt
	e.log.Debug(ctx, "pushed vault", "device", id, "updated_at", vault.FormatTime(c.UpdatedAt))
	e.markSynced()
	return nil
}

// PushAsync schedules a push and returns immediately.
func (e *Engine) PushAsync(c vault.Container) {
	c = c.Clone()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.pushTimeout)
		defer cancel()
		e.Push(ctx, c)
	}()
}

// Wait blocks until every scheduled push has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) fail(ctx context.Context, err error) {
	e.log.Warn(ctx, "remote unavailable", "device", e.DeviceID(), "error", err)
	e.setStatus(Offline, err)
}

func (e *Engine) markSynced() {
	e.mu.Lock()
	e.status = Status{State: Synced, LastSync: e.now()}
	e.mu.Unlock()
}

func (e *Engine) setStatus(s State, err error) {
	e.mu.Lock()
	e.status.State = s
	e.status.LastError = err
	e.mu.Unlock()
}
