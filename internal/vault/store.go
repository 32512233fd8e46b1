package vault

import (
	"bytes"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/boveda/internal/crypto"
)

// Store performs every operation that produces or consumes a Container.
// It holds no vault state of its own; the live Session is owned by the caller.
type Store struct {
	rand   io.Reader
	now    func() time.Time
	newID  func() string
	policy Policy
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the source of salts and nonces.
func WithRand(r io.Reader) Option {
	return func(s *Store) { s.rand = r }
}

// WithClock sets the clock used for record and container timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithPolicy sets the passphrase policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// NewStore creates a Store with crypto/rand, the wall clock, UUID record ids
// and the default passphrase policy unless overridden.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rand:   rand.Reader,
		now:    time.Now,
		newID:  uuid.NewString,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the passphrase policy in effect.
func (s *Store) Policy() Policy {
	return s.policy
}

// timestamp truncates to milliseconds so values survive TimeLayout unchanged.
// It is always later than prev, so successive containers of one session
// never share an updatedAt even when the clock has not moved.
func (s *Store) timestamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Millisecond)
	if next := prev.Add(time.Millisecond); now.Before(next) {
		return next.UTC()
	}
	return now
}

// Create starts a new vault protected by passphrase.
func (s *Store) Create(passphrase []byte) (*Session, Container, error) {
	if err := s.policy.Validate(passphrase); err != nil {
		return nil, Container{}, err
	}

	kdf, err := crypto.NewKDF(s.rand)
	if err != nil {
		return nil, Container{}, err
	}
	key, err := kdf.DeriveKey(passphrase)
	if err != nil {
		return nil, Container{}, err
	}

	records := []Record{}
	c, err := s.seal(key, kdf.Salt, records, s.timestamp(time.Time{}))
	if err != nil {
		crypto.ClearBytes(key)
		return nil, Container{}, err
	}

	return &Session{key: key, salt: kdf.Salt, records: records, container: c}, c.Clone(), nil
}

// Unlock derives the key from passphrase and the container salt and opens
// the container. Every failure is reported as ErrAuthentication.
func (s *Store) Unlock(c Container, passphrase []byte) (*Session, error) {
	key, err := crypto.DeriveKey(passphrase, c.Salt)
	if err != nil {
		return nil, ErrAuthentication
	}

	records, err := s.open(key, c)
	if err != nil {
		crypto.ClearBytes(key)
		return nil, err
	}

	return &Session{
		key:       key,
		salt:      append([]byte(nil), c.Salt...),
		records:   records,
		container: c.Clone(),
	}, nil
}

// Add appends a new record and re-encrypts the vault.
func (s *Store) Add(sess *Session, in RecordInput) (*Session, Container, error) {
	if err := in.Validate(); err != nil {
		return nil, Container{}, err
	}

	now := s.timestamp(sess.container.UpdatedAt)
	rec := Record{
		ID:        s.newID(),
		Name:      in.Name,
		Username:  in.Username,
		Password:  in.Password,
		URL:       in.URL,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	records := append(cloneRecords(sess.records), rec)
	return s.commit(sess, records, now)
}

// Update applies patch to the record with the given id. An unknown id is a
// no-op: the same session and container are returned.
func (s *Store) Update(sess *Session, id string, patch RecordPatch) (*Session, Container, error) {
	i := sess.index(id)
	if i < 0 || patch.IsEmpty() {
		return sess, sess.Container(), nil
	}

	rec := patch.apply(sess.records[i])
	if err := rec.input().Validate(); err != nil {
		return nil, Container{}, err
	}

	now := s.timestamp(sess.container.UpdatedAt)
	rec.UpdatedAt = now
	records := cloneRecords(sess.records)
	records[i] = rec
	return s.commit(sess, records, now)
}

// Remove deletes the record with the given id. An unknown id leaves the
// session and its container untouched.
func (s *Store) Remove(sess *Session, id string) (*Session, Container, error) {
	i := sess.index(id)
	if i < 0 {
		return sess, sess.Container(), nil
	}

	records := make([]Record, 0, len(sess.records)-1)
	records = append(records, sess.records[:i]...)
	records = append(records, sess.records[i+1:]...)
	return s.commit(sess, records, s.timestamp(sess.container.UpdatedAt))
}

// Rekey changes the master passphrase. The current passphrase is checked
// against the persisted container rather than the session, so a stale
// in-memory session cannot be used to take over a vault whose passphrase
// was already changed elsewhere.
func (s *Store) Rekey(sess *Session, persisted Container, current, next []byte) (*Session, Container, error) {
	if err := s.policy.Validate(next); err != nil {
		return nil, Container{}, err
	}

	oldKey, err := crypto.DeriveKey(current, persisted.Salt)
	if err != nil {
		return nil, Container{}, ErrAuthentication
	}
	_, err = s.open(oldKey, persisted)
	crypto.ClearBytes(oldKey)
	if err != nil {
		return nil, Container{}, err
	}

	kdf, err := crypto.NewKDF(s.rand)
	if err != nil {
		return nil, Container{}, err
	}
	key, err := kdf.DeriveKey(next)
	if err != nil {
		return nil, Container{}, err
	}

	records := cloneRecords(sess.records)
	c, err := s.seal(key, kdf.Salt, records, s.timestamp(sess.container.UpdatedAt))
	if err != nil {
		crypto.ClearBytes(key)
		return nil, Container{}, err
	}

	return &Session{key: key, salt: kdf.Salt, records: records, container: c}, c.Clone(), nil
}

// Adopt replaces the session content with a container produced elsewhere
// under the same key. Containers from a different salt lineage fail with
// ErrAuthentication.
func (s *Store) Adopt(sess *Session, c Container) (*Session, error) {
	if !bytes.Equal(c.Salt, sess.salt) {
		return nil, ErrAuthentication
	}
	records, err := s.open(sess.key, c)
	if err != nil {
		return nil, err
	}
	return sess.with(records, c.Clone()), nil
}

func (s *Store) commit(sess *Session, records []Record, at time.Time) (*Session, Container, error) {
	c, err := s.seal(sess.key, sess.salt, records, at)
	if err != nil {
		return nil, Container{}, err
	}
	return sess.with(records, c), c.Clone(), nil
}

func (s *Store) seal(key, salt []byte, records []Record, at time.Time) (Container, error) {
	plaintext, err := encodeRecords(records)
	if err != nil {
		return Container{}, err
	}
	defer crypto.ClearBytes(plaintext)

	data, err := crypto.NewEncryptor(key).WithRand(s.rand).Encrypt(plaintext)
	if err != nil {
		return Container{}, err
	}

	return Container{
		Salt:      append([]byte(nil), salt...),
		Data:      data,
		UpdatedAt: at,
	}, nil
}

func (s *Store) open(key []byte, c Container) ([]Record, error) {
	plaintext, err := crypto.NewEncryptor(key).Decrypt(c.Data)
	if err != nil {
		return nil, ErrAuthentication
	}
	defer crypto.ClearBytes(plaintext)

	records, err := decodeRecords(plaintext)
	if err != nil {
		return nil, ErrAuthentication
	}
	return records, nil
}
