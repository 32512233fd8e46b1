package vault

import "errors"

var (
	// ErrAuthentication covers both a wrong passphrase and a corrupted or
	// tampered container. The two cases are intentionally indistinguishable.
	ErrAuthentication = errors.New("incorrect passphrase")
	// ErrFormat reports a malformed persisted or transferred structure.
	ErrFormat = errors.New("malformed vault data")
	// ErrTransport reports an unreachable remote store. It is never fatal.
	ErrTransport = errors.New("remote store unavailable")
	// ErrValidation reports a policy violation in user input.
	ErrValidation = errors.New("validation failed")
)
