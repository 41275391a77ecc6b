// Package sync implements the offline-first synchronization engine:
// pull-then-push against the remote backend, an outbox of outstanding
// local changes, timestamp conflict resolution, and the scheduling
// surface the app layer triggers syncs through.
package sync

import (
	"github.com/stevoh213/cragbook/internal/models"
)

// Winner is the outcome of resolving one local/remote record pair.
type Winner int

const (
	// KeepLocal leaves the local version in place; the incoming remote
	// version is discarded.
	KeepLocal Winner = iota
	// TakeRemote overwrites the local version wholesale with the
	// remote one.
	TakeRemote
)

// Resolve decides which version of a record survives a pull merge.
//
// Rules, in order:
//  1. A dirty local record always wins. Unpushed edits are never lost
//     to an incoming remote version; the next push re-asserts them and
//     last-write-wins settles it globally.
//  2. Otherwise the strictly newer UpdatedAt wins. Ties keep local,
//     which makes re-applying an already-merged row a no-op.
//
// Record-level only: the winning version replaces the losing one in
// full, no field merging.
func Resolve(local, remote models.Syncable) Winner {
	if local.IsDirty() {
		return KeepLocal
	}
	if remote.RecordUpdatedAt().After(local.RecordUpdatedAt()) {
		return TakeRemote
	}
	return KeepLocal
}
