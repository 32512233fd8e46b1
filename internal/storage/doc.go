// Package storage provides the BBolt file that holds the local vault.
//
// Database structure uses two buckets:
//   - config: format version, creation time and the device identity (unencrypted)
//   - vault: the single container slot, stored as the container JSON
//
// The device identity lives outside the encrypted container so that
// `boveda device` and the keyring cache work without a passphrase.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
