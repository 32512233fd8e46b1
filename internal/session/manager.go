package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/syncer"
	"github.com/illarion/boveda/internal/vault"
)

const (
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultCheckInterval = 10 * time.Second
)

// Slot is the local persistence of the single container.
type Slot interface {
	Load() (vault.Container, bool, error)
	Save(c vault.Container) error
}

// Syncer is the remote side of the lifecycle. *syncer.Engine implements it.
type Syncer interface {
	Reconcile(ctx context.Context, sess *vault.Session) (*vault.Session, bool)
	PushAsync(c vault.Container)
	Status() syncer.Status
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	IdleTimeout   time.Duration
	CheckInterval time.Duration
	Clock         Clock
	Syncer        Syncer
	Logger        logging.Logger
	// OnIdleLock is called, outside the manager lock, after the idle
	// watcher has locked the vault.
	OnIdleLock func()
}

// Manager is the NoVault/Locked/Unlocked state machine.
type Manager struct {
	slot          Slot
	store         *vault.Store
	syncer        Syncer
	clock         Clock
	log           logging.Logger
	idleTimeout   time.Duration
	checkInterval time.Duration
	onIdleLock    func()

	mu           sync.Mutex
	state        State
	sess         *vault.Session
	lastActivity time.Time
	stopWatch    context.CancelFunc
}

// NewManager loads the slot to determine the initial state.
func NewManager(slot Slot, store *vault.Store, opts Options) (*Manager, error) {
	m := &Manager{
		slot:          slot,
		store:         store,
		syncer:        opts.Syncer,
		clock:         opts.Clock,
		log:           opts.Logger,
		idleTimeout:   opts.IdleTimeout,
		checkInterval: opts.CheckInterval,
		onIdleLock:    opts.OnIdleLock,
	}
	if m.clock == nil {
		m.clock = RealClock()
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = DefaultIdleTimeout
	}
	if m.checkInterval <= 0 {
		m.checkInterval = DefaultCheckInterval
	}

	_, ok, err := slot.Load()
	if err != nil {
		return nil, err
	}
	m.state = NoVault
	if ok {
		m.state = Locked
	}
	return m, nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Create makes a new vault and leaves the manager Unlocked.
func (m *Manager) Create(passphrase, confirm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != NoVault {
		return ErrVaultExists
	}
	if err := m.store.Policy().ValidateNew(passphrase, confirm); err != nil {
		return err
	}

	sess, c, err := m.store.Create(passphrase)
	if err != nil {
		return err
	}
	if err := m.slot.Save(c); err != nil {
		sess.Wipe()
		return fmt.Errorf("failed to save vault: %w", err)
	}

	m.openLocked(sess)
	if m.syncer != nil {
		m.syncer.PushAsync(c)
	}
	return nil
}

// Unlock opens the persisted vault. A wrong passphrase leaves the manager
// Locked. On success the syncer reconciles with the remote before Unlock
// returns; remote problems never fail the unlock. Unlocking an already
// unlocked manager only records activity.
func (m *Manager) Unlock(ctx context.Context, passphrase []byte) error {
	m.mu.Lock()
	switch m.state {
	case NoVault:
		m.mu.Unlock()
		return ErrNoVault
	case Unlocked:
		m.touchLocked()
		m.mu.Unlock()
		return nil
	}

	c, ok, err := m.slot.Load()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !ok {
		m.state = NoVault
		m.mu.Unlock()
		return ErrNoVault
	}

	sess, err := m.store.Unlock(c, passphrase)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.openLocked(sess)
	m.mu.Unlock()

	m.reconcile(ctx, sess)
	return nil
}

// Sync reconciles the unlocked session with the remote now.
func (m *Manager) Sync(ctx context.Context) error {
	m.mu.Lock()
	if err := m.requireUnlockedLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	sess := m.sess
	m.touchLocked()
	m.mu.Unlock()

	m.reconcile(ctx, sess)
	return nil
}

func (m *Manager) reconcile(ctx context.Context, sess *vault.Session) {
	if m.syncer == nil {
		return
	}
	next, replaced := m.syncer.Reconcile(ctx, sess)
	if !replaced {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Unlocked || m.sess != sess {
		// A local change or a lock happened meanwhile; it wins.
		m.log.Debug(ctx, "discarding adopted remote vault, session changed")
		return
	}
	if err := m.slot.Save(next.Container()); err != nil {
		m.log.Error(ctx, "failed to persist adopted remote vault", "error", err)
		return
	}
	m.sess = next
}

// Lock wipes the session key and stops the idle watcher. It is a no-op
// unless the manager is Unlocked.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockLocked()
}

// Touch records user activity.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Unlocked {
		m.touchLocked()
	}
}

// Add creates a record and returns it.
func (m *Manager) Add(in vault.RecordInput) (vault.Record, error) {
	var added vault.Record
	err := m.mutate(func(sess *vault.Session) (*vault.Session, vault.Container, error) {
		next, c, err := m.store.Add(sess, in)
		if err != nil {
			return nil, vault.Container{}, err
		}
		records := next.Records()
		added = records[len(records)-1]
		return next, c, nil
	})
	return added, err
}

// Update applies patch to the record with the given id. An unknown id is a no-op.
func (m *Manager) Update(id string, patch vault.RecordPatch) error {
	return m.mutate(func(sess *vault.Session) (*vault.Session, vault.Container, error) {
		return m.store.Update(sess, id, patch)
	})
}

// Remove deletes the record with the given id. An unknown id is a no-op.
func (m *Manager) Remove(id string) error {
	return m.mutate(func(sess *vault.Session) (*vault.Session, vault.Container, error) {
		return m.store.Remove(sess, id)
	})
}

// Rekey changes the master passphrase. current is checked against the
// persisted container.
func (m *Manager) Rekey(current, next, confirm []byte) error {
	if err := m.store.Policy().ValidateNew(next, confirm); err != nil {
		return err
	}
	var old *vault.Session
	err := m.mutate(func(sess *vault.Session) (*vault.Session, vault.Container, error) {
		persisted, ok, err := m.slot.Load()
		if err != nil {
			return nil, vault.Container{}, err
		}
		if !ok {
			return nil, vault.Container{}, ErrNoVault
		}
		old = sess
		return m.store.Rekey(sess, persisted, current, next)
	})
	if err == nil && old != nil {
		// the old key is no longer reachable from the manager
		old.Wipe()
	}
	return err
}

// Import replaces the local vault with c, discarding whatever was stored.
// The manager ends up Locked; c is unlocked with its own passphrase.
func (m *Manager) Import(c vault.Container) error {
	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.slot.Save(c); err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}
	m.lockLocked()
	m.state = Locked
	return nil
}

// Records returns every record in insertion order.
func (m *Manager) Records() ([]vault.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUnlockedLocked(); err != nil {
		return nil, err
	}
	return m.sess.Records(), nil
}

// Search returns the records matching term.
func (m *Manager) Search(term string) ([]vault.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUnlockedLocked(); err != nil {
		return nil, err
	}
	return m.sess.Search(term), nil
}

// Find returns the record with the given id.
func (m *Manager) Find(id string) (vault.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUnlockedLocked(); err != nil {
		return vault.Record{}, err
	}
	rec, ok := m.sess.Find(id)
	if !ok {
		return vault.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Current returns the unlocked session. The value must not be used after
// the manager locks.
func (m *Manager) Current() (*vault.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUnlockedLocked(); err != nil {
		return nil, err
	}
	return m.sess, nil
}

// Container returns the persisted container. It does not need the vault
// to be unlocked.
func (m *Manager) Container() (vault.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok, err := m.slot.Load()
	if err != nil {
		return vault.Container{}, err
	}
	if !ok {
		return vault.Container{}, ErrNoVault
	}
	return c, nil
}

// SyncStatus returns the transient sync indicator.
func (m *Manager) SyncStatus() syncer.Status {
	if m.syncer == nil {
		return syncer.Status{}
	}
	return m.syncer.Status()
}

type mutation func(sess *vault.Session) (*vault.Session, vault.Container, error)

// mutate persists the result of fn before publishing it.
func (m *Manager) mutate(fn mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUnlockedLocked(); err != nil {
		return err
	}
	m.touchLocked()

	next, c, err := fn(m.sess)
	if err != nil {
		return err
	}
	if next == m.sess {
		return nil
	}

	if err := m.slot.Save(c); err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}
	m.sess = next
	if m.syncer != nil {
		m.syncer.PushAsync(c)
	}
	return nil
}

func (m *Manager) requireUnlockedLocked() error {
	switch m.state {
	case NoVault:
		return ErrNoVault
	case Locked:
		return ErrLocked
	}
	return nil
}

func (m *Manager) touchLocked() {
	m.lastActivity = m.clock.Now()
}

func (m *Manager) openLocked(sess *vault.Session) {
	m.sess = sess
	m.state = Unlocked
	m.touchLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.stopWatch = cancel
	go m.watchIdle(ctx, m.clock.NewTicker(m.checkInterval))
}

func (m *Manager) lockLocked() {
	if m.state != Unlocked {
		return
	}
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	m.sess.Wipe()
	m.sess = nil
	m.state = Locked
}

func (m *Manager) watchIdle(ctx context.Context, t Ticker) {
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if m.lockIfIdle(ctx) {
				return
			}
		}
	}
}

// lockIfIdle reports whether the watcher should exit.
func (m *Manager) lockIfIdle(ctx context.Context) bool {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return true
	}
	idle := m.clock.Now().Sub(m.lastActivity)
	if idle < m.idleTimeout {
		m.mu.Unlock()
		return false
	}
	m.lockLocked()
	cb := m.onIdleLock
	m.mu.Unlock()

	m.log.Info(ctx, "vault locked after inactivity", "idle", idle.Round(time.Second).String())
	if cb != nil {
		cb()
	}
	return true
}

var _ Syncer = (*syncer.Engine)(nil)
