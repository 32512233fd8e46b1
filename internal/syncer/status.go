package syncer

import "time"

// State is the transient sync indicator.
type State int

const (
	Idle State = iota
	Synced
	Offline
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Synced:
		return "synced"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the engine's sync indicator.
type Status struct {
	State     State
	LastSync  time.Time
	LastError error
}
