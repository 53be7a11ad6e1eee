package trips

import (
	"sync"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// DocumentSnapshot is one state of a watched itinerary. NotFound is set once the
// document is gone.
type DocumentSnapshot struct {
	Itinerary *locitypes.Itinerary
	NotFound  bool
}

// Subscription delivers the latest snapshot on C. A slow reader only ever sees the
// newest value; intermediate snapshots are dropped. C is closed after Close.
type Subscription[T any] struct {
	C <-chan T

	ch      chan T
	mu      sync.Mutex
	closed  bool
	updated bool
	release func()
	once    sync.Once
}

func newSubscription[T any](release func()) *Subscription[T] {
	ch := make(chan T, 1)
	return &Subscription[T]{C: ch, ch: ch, release: release}
}

func (s *Subscription[T]) deliver(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = true
	s.pushLocked(v)
}

// deliverInitial hands over the state read at subscribe time unless a change
// notification already delivered something newer.
func (s *Subscription[T]) deliverInitial(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated {
		return
	}
	s.pushLocked(v)
}

func (s *Subscription[T]) pushLocked(v T) {
	if s.closed {
		return
	}
	select {
	case s.ch <- v:
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- v
	}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
