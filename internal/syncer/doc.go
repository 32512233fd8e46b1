// Package syncer keeps the local vault and one remote slot in step using
// whole-container last-writer-wins.
//
// On unlock Reconcile compares the two updatedAt stamps: a strictly newer
// remote is adopted, a strictly newer local is pushed, and equal stamps
// mean nothing to do. After every local mutation the new container is
// pushed asynchronously. Pushes are serialized and a container older than
// the last one pushed from this device is dropped, so the remote never
// moves backwards.
//
// Concurrent edits on two devices are not merged: whichever container was
// written last replaces the other entirely. Preview shows what a
// reconcile would discard before it happens.
package syncer
