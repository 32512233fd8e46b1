package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/boveda/internal/vault"
	bolt "go.etcd.io/bbolt"
)

var vaultsBucket = []byte("vaults")

// Bolt stores one container per device key in a bbolt file. It backs the
// sync server and also serves as a "shared folder" remote.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create remote directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(vaultsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", vaultsBucket, err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Get(ctx context.Context, deviceKey string) (vault.Container, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(vaultsBucket).Get([]byte(deviceKey))
		if v != nil {
			// Make a copy since the slice is only valid during the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return vault.Container{}, transportError("get", err)
	}
	if data == nil {
		return vault.Container{}, ErrNotFound
	}
	return vault.Decode(data)
}

func (b *Bolt) Put(ctx context.Context, deviceKey string, c vault.Container) error {
	data, err := vault.Encode(c)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(vaultsBucket).Put([]byte(deviceKey), data)
	})
	if err != nil {
		return transportError("put", err)
	}
	return nil
}
