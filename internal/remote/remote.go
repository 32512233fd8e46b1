// Package remote holds the stores a vault container can be synced to.
//
// Every store keeps exactly one container per device key and overwrites it
// on Put. A missing container is reported as ErrNotFound; any failure to
// reach the backend wraps vault.ErrTransport so callers can treat it as
// "offline" rather than fatal.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/illarion/boveda/internal/vault"
)

// ErrNotFound is returned by Get when no container exists for the key.
var ErrNotFound = errors.New("remote vault not found")

// Store is the remote persistence contract.
type Store interface {
	Get(ctx context.Context, deviceKey string) (vault.Container, error)
	Put(ctx context.Context, deviceKey string, c vault.Container) error
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", vault.ErrTransport, op, err)
}

// objectKey is the object name used by the blob-style stores.
func objectKey(prefix, deviceKey string) string {
	return prefix + deviceKey + ".json"
}
