package trips

import (
	"context"
	"sync"
)

// Viewer holds at most one live document subscription. Switching to another
// itinerary closes the previous subscription first, and snapshots from a closed
// subscription never reach onUpdate.
//
// Snapshots whose revision is older than the newest one already seen, or older than
// a local write announced through ExpectRevision, are dropped.
type Viewer struct {
	store    Store
	onUpdate func(DocumentSnapshot)

	mu         sync.Mutex
	sub        *Subscription[DocumentSnapshot]
	current    docKey
	generation uint64
	pending    int64
	delivered  int64
}

func NewViewer(store Store, onUpdate func(DocumentSnapshot)) *Viewer {
	return &Viewer{store: store, onUpdate: onUpdate}
}

// View starts watching the itinerary. Viewing the identity already watched is a no-op.
func (v *Viewer) View(ctx context.Context, ownerID, itineraryID string) error {
	key := docKey{owner: ownerID, id: itineraryID}

	v.mu.Lock()
	if v.sub != nil && v.current == key {
		v.mu.Unlock()
		return nil
	}
	v.teardownLocked()
	v.generation++
	gen := v.generation
	v.current = key
	v.pending = 0
	v.delivered = 0
	v.mu.Unlock()

	sub, err := v.store.SubscribeDocument(ctx, ownerID, itineraryID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.generation != gen {
		// superseded by a concurrent View or Close
		v.mu.Unlock()
		sub.Close()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	go v.pump(gen, sub)
	return nil
}

// ExpectRevision records a local write that will land with rev. Snapshots older than
// rev are treated as stale until the write is observed.
func (v *Viewer) ExpectRevision(rev int64) {
	v.mu.Lock()
	if rev > v.pending {
		v.pending = rev
	}
	v.mu.Unlock()
}

// Close drops the active subscription.
func (v *Viewer) Close() {
	v.mu.Lock()
	v.teardownLocked()
	v.generation++
	v.mu.Unlock()
}

func (v *Viewer) teardownLocked() {
	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
}

func (v *Viewer) pump(gen uint64, sub *Subscription[DocumentSnapshot]) {
	for snap := range sub.C {
		if v.accept(gen, snap) {
			v.onUpdate(snap)
		}
	}
}

func (v *Viewer) accept(gen uint64, snap DocumentSnapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return false
	}
	if snap.Itinerary == nil {
		return true
	}
	rev := snap.Itinerary.Revision
	if rev < v.pending || rev < v.delivered {
		return false
	}
	v.delivered = rev
	return true
}
