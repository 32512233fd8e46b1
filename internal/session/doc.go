// Package session owns the lifecycle of the vault on this device.
//
// A Manager is in one of three states:
//
//	NoVault  --Create-->  Unlocked
//	Locked   --Unlock-->  Unlocked
//	Unlocked --Lock / idle timeout / Import-->  Locked
//
// Every mutation is written to the local slot before the new session is
// published, so a failed write leaves the previous session in place. While
// unlocked, a watcher goroutine locks the vault once no activity has been
// recorded for the idle timeout.
package session
