// Package vault holds the record model, the encrypted container format and
// the store that turns one into the other.
//
// A Container is the only durable representation of the vault: a salt, the
// AES-GCM sealed JSON record list and an update timestamp. A Session is the
// unlocked, in-memory view of a container. Sessions are never modified in
// place; every Store operation returns a new Session together with the
// Container that must be persisted for it.
//
// Failures are classified with four sentinels (ErrAuthentication, ErrFormat,
// ErrTransport, ErrValidation) that callers test with errors.Is.
package vault
