package session

import "errors"

// State of the Manager.
type State int

const (
	NoVault State = iota
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case NoVault:
		return "no vault"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

var (
	ErrLocked      = errors.New("vault is locked")
	ErrNoVault     = errors.New("no vault exists; run 'boveda init' first")
	ErrVaultExists = errors.New("a vault already exists")
	ErrNotFound    = errors.New("record not found")
)
