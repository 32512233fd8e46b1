// Package keyring caches the master passphrase in the OS keyring, keyed by
// device identity so linked devices sharing a slot do not collide locally.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "boveda"

// ErrNotFound is returned when no passphrase is cached for the device.
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a passphrase in the OS keyring
func SavePassphrase(deviceID string, passphrase []byte) error {
	return keyring.Set(serviceName, deviceID, string(passphrase))
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(deviceID string) ([]byte, error) {
	s, err := keyring.Get(serviceName, deviceID)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// DeletePassphrase removes a passphrase from the OS keyring. Deleting a
// missing entry is not an error.
func DeletePassphrase(deviceID string) error {
	err := keyring.Delete(serviceName, deviceID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored in the keyring
func HasPassphrase(deviceID string) bool {
	_, err := keyring.Get(serviceName, deviceID)
	return err == nil
}

// UpdateIfCached replaces a cached passphrase after a rekey. Nothing is
// stored when the device had no entry. It reports whether an entry was updated.
func UpdateIfCached(deviceID string, passphrase []byte) (bool, error) {
	if !HasPassphrase(deviceID) {
		return false, nil
	}
	if err := SavePassphrase(deviceID, passphrase); err != nil {
		return false, err
	}
	return true, nil
}
