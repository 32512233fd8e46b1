package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/boveda/internal/vault"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // version, timestamps, device identity - unencrypted
	VaultBucket  = []byte("vault")  // container slot
)

// Keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigDeviceID = []byte("device_id")
	ContainerKey   = []byte("container")
)

const (
	formatVersion = "1"
	deviceIDBytes = 16
)

// ErrNoDeviceID is returned when the file carries no device identity yet.
var ErrNoDeviceID = errors.New("device id not found")

// Storage provides BBolt-based storage for the local vault
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a vault database. The parent directory is created
// with owner-only permissions when missing.
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. It is safe to call on an
// existing database.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, VaultBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte(formatVersion)); err != nil {
			return err
		}
		created, _ := time.Now().UTC().MarshalBinary()
		return config.Put(ConfigCreated, created)
	})
}

// Created returns the time the database was first initialized.
func (s *Storage) Created() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// Load reads the container slot. The boolean is false when no vault has
// been written yet.
func (s *Storage) Load() (vault.Container, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(VaultBucket).Get(ContainerKey)
		if v == nil {
			return nil
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return vault.Container{}, false, err
	}
	if data == nil {
		return vault.Container{}, false, nil
	}

	c, err := vault.Decode(data)
	if err != nil {
		return vault.Container{}, false, fmt.Errorf("failed to read vault: %w", err)
	}
	return c, true, nil
}

// Save overwrites the container slot.
func (s *Storage) Save(c vault.Container) error {
	data, err := vault.Encode(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(VaultBucket).Put(ContainerKey, data)
	})
}

// DeviceID retrieves the device identity.
func (s *Storage) DeviceID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigDeviceID)
		if data == nil {
			return ErrNoDeviceID
		}
		id = string(data)
		return nil
	})
	return id, err
}

// GetOrCreateDeviceID retrieves the existing device identity or generates a new one.
func (s *Storage) GetOrCreateDeviceID() (string, error) {
	id, err := s.DeviceID()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoDeviceID) {
		return "", err
	}

	b := make([]byte, deviceIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate device ID: %w", err)
	}
	id = hex.EncodeToString(b)

	if err := s.SetDeviceID(id); err != nil {
		return "", err
	}
	return id, nil
}

// SetDeviceID replaces the device identity, which is how a device is
// linked to another device's remote slot.
func (s *Storage) SetDeviceID(id string) error {
	if err := ValidateDeviceID(id); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigDeviceID, []byte(id))
	})
}

// ValidateDeviceID checks that id is 32 lowercase hex characters.
func ValidateDeviceID(id string) error {
	b, err := hex.DecodeString(id)
	if err != nil || len(b) != deviceIDBytes || hex.EncodeToString(b) != id {
		return fmt.Errorf("%w: device id must be %d hex characters", vault.ErrValidation, deviceIDBytes*2)
	}
	return nil
}

// Compact creates a compacted copy of the database, removing unused space
// left behind by repeated container rewrites.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
