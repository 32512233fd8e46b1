package remote

import (
	"context"
	"sync"

	"github.com/illarion/boveda/internal/vault"
)

// Memory is an in-process Store. It keeps the encoded form so callers never
// share slices with it.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, deviceKey string) (vault.Container, error) {
	if err := ctx.Err(); err != nil {
		return vault.Container{}, transportError("get", err)
	}
	m.mu.RLock()
	data, ok := m.blobs[deviceKey]
	m.mu.RUnlock()
	if !ok {
		return vault.Container{}, ErrNotFound
	}
	return vault.Decode(data)
}

func (m *Memory) Put(ctx context.Context, deviceKey string, c vault.Container) error {
	if err := ctx.Err(); err != nil {
		return transportError("put", err)
	}
	data, err := vault.Encode(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[deviceKey] = data
	m.mu.Unlock()
	return nil
}
