package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

// ChangeChannel is the Postgres NOTIFY channel the itineraries trigger publishes on.
const ChangeChannel = "itinerary_changes"

var errHubDisabled = errors.New("trip subscriptions are not enabled")

// Change is the NOTIFY payload emitted by the itineraries trigger.
type Change struct {
	OwnerID     string `json:"owner_id"`
	ItineraryID string `json:"id"`
	Op          string `json:"op"`
}

// Listener yields raw NOTIFY payloads until ctx ends or the connection breaks.
type Listener interface {
	Wait(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// ListenFunc opens a fresh Listener. The hub calls it again after a broken connection.
type ListenFunc func(ctx context.Context) (Listener, error)

type docKey struct {
	owner string
	id    string
}

// Hub fans itinerary change notifications out to document and collection subscribers.
type Hub struct {
	logger     *slog.Logger
	reader     Reader
	listen     ListenFunc
	retryDelay time.Duration

	mu     sync.Mutex
	nextID uint64
	docs   map[docKey]map[uint64]*Subscription[DocumentSnapshot]
	colls  map[string]map[uint64]*Subscription[[]locitypes.ItinerarySummary]
}

func NewHub(reader Reader, listen ListenFunc, logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		reader:     reader,
		listen:     listen,
		retryDelay: 2 * time.Second,
		docs:       make(map[docKey]map[uint64]*Subscription[DocumentSnapshot]),
		colls:      make(map[string]map[uint64]*Subscription[[]locitypes.ItinerarySummary]),
	}
}

// SubscribeDocument registers a watcher for one itinerary and delivers its current state.
func (h *Hub) SubscribeDocument(ctx context.Context, ownerID, itineraryID string) (*Subscription[DocumentSnapshot], error) {
	key := docKey{owner: ownerID, id: itineraryID}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	sub := newSubscription[DocumentSnapshot](func() { h.dropDocument(key, id) })
	if h.docs[key] == nil {
		h.docs[key] = make(map[uint64]*Subscription[DocumentSnapshot])
	}
	h.docs[key][id] = sub
	h.mu.Unlock()
	observability.ActiveSubscriptions.WithLabelValues("document").Inc()

	snap, err := h.documentSnapshot(ctx, ownerID, itineraryID, "")
	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.deliverInitial(snap)
	return sub, nil
}

// SubscribeCollection registers a watcher for an owner's itinerary list.
func (h *Hub) SubscribeCollection(ctx context.Context, ownerID string) (*Subscription[[]locitypes.ItinerarySummary], error) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	sub := newSubscription[[]locitypes.ItinerarySummary](func() { h.dropCollection(ownerID, id) })
	if h.colls[ownerID] == nil {
		h.colls[ownerID] = make(map[uint64]*Subscription[[]locitypes.ItinerarySummary])
	}
	h.colls[ownerID][id] = sub
	h.mu.Unlock()
	observability.ActiveSubscriptions.WithLabelValues("collection").Inc()

	list, err := h.reader.List(ctx, ownerID)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to load initial itinerary list: %w", err)
	}
	sub.deliverInitial(list)
	return sub, nil
}

func (h *Hub) dropDocument(key docKey, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.docs[key]; ok {
		if _, ok := subs[id]; ok {
			delete(subs, id)
			observability.ActiveSubscriptions.WithLabelValues("document").Dec()
		}
		if len(subs) == 0 {
			delete(h.docs, key)
		}
	}
}

func (h *Hub) dropCollection(owner string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.colls[owner]; ok {
		if _, ok := subs[id]; ok {
			delete(subs, id)
			observability.ActiveSubscriptions.WithLabelValues("collection").Dec()
		}
		if len(subs) == 0 {
			delete(h.colls, owner)
		}
	}
}

// Subscribers reports how many document and collection subscriptions are open.
func (h *Hub) Subscribers() (documents, collections int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.docs {
		documents += len(subs)
	}
	for _, subs := range h.colls {
		collections += len(subs)
	}
	return documents, collections
}

// Run consumes notifications until ctx is cancelled, reconnecting after failures.
// Every subscriber is refreshed after a reconnect since notifications sent while
// disconnected are lost.
func (h *Hub) Run(ctx context.Context) error {
	l := h.logger.With(slog.String("component", "trip_hub"))
	first := true
	for {
		listener, err := h.listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.WarnContext(ctx, "Failed to start listener", slog.Any("error", err))
			if !h.sleep(ctx) {
				return nil
			}
			continue
		}

		if !first {
			h.refreshAll(ctx)
		}
		first = false

		err = h.consume(ctx, listener)
		if cerr := listener.Close(context.WithoutCancel(ctx)); cerr != nil {
			l.DebugContext(ctx, "Listener close failed", slog.Any("error", cerr))
		}
		if ctx.Err() != nil {
			return nil
		}
		l.WarnContext(ctx, "Listener disconnected", slog.Any("error", err))
		if !h.sleep(ctx) {
			return nil
		}
	}
}

func (h *Hub) sleep(ctx context.Context) bool {
	t := time.NewTimer(h.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (h *Hub) consume(ctx context.Context, listener Listener) error {
	for {
		payload, err := listener.Wait(ctx)
		if err != nil {
			return err
		}
		var change Change
		if err := json.Unmarshal([]byte(payload), &change); err != nil || change.OwnerID == "" {
			h.logger.WarnContext(ctx, "Ignoring malformed change notification", slog.String("payload", payload))
			continue
		}
		h.Dispatch(ctx, change)
	}
}

// Dispatch pushes fresh snapshots for change to every interested subscriber.
func (h *Hub) Dispatch(ctx context.Context, change Change) {
	key := docKey{owner: change.OwnerID, id: change.ItineraryID}

	h.mu.Lock()
	docSubs := collect(h.docs[key])
	collSubs := collect(h.colls[change.OwnerID])
	h.mu.Unlock()

	if len(docSubs) > 0 {
		snap, err := h.documentSnapshot(ctx, change.OwnerID, change.ItineraryID, change.Op)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to load changed itinerary",
				slog.String("itinerary_id", change.ItineraryID), slog.Any("error", err))
		} else {
			for _, s := range docSubs {
				s.deliver(cloneSnapshot(snap))
			}
		}
	}

	if len(collSubs) > 0 {
		list, err := h.reader.List(ctx, change.OwnerID)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to reload itinerary list",
				slog.String("owner_id", change.OwnerID), slog.Any("error", err))
			return
		}
		for _, s := range collSubs {
			s.deliver(append([]locitypes.ItinerarySummary(nil), list...))
		}
	}
}

func (h *Hub) refreshAll(ctx context.Context) {
	h.mu.Lock()
	changes := make([]Change, 0, len(h.docs)+len(h.colls))
	for key := range h.docs {
		changes = append(changes, Change{OwnerID: key.owner, ItineraryID: key.id, Op: "REFRESH"})
	}
	for owner := range h.colls {
		changes = append(changes, Change{OwnerID: owner, Op: "REFRESH"})
	}
	h.mu.Unlock()

	for _, c := range changes {
		h.Dispatch(ctx, c)
	}
}

func (h *Hub) documentSnapshot(ctx context.Context, ownerID, itineraryID, op string) (DocumentSnapshot, error) {
	if op == "DELETE" {
		return DocumentSnapshot{NotFound: true}, nil
	}
	it, err := h.reader.Get(ctx, ownerID, itineraryID)
	if err != nil {
		if errors.Is(err, locitypes.ErrNotFound) {
			return DocumentSnapshot{NotFound: true}, nil
		}
		return DocumentSnapshot{}, err
	}
	return DocumentSnapshot{Itinerary: it}, nil
}

func cloneSnapshot(s DocumentSnapshot) DocumentSnapshot {
	if s.Itinerary == nil {
		return s
	}
	c := s.Itinerary.Clone()
	return DocumentSnapshot{Itinerary: &c}
}

func collect[T any](m map[uint64]*Subscription[T]) []*Subscription[T] {
	out := make([]*Subscription[T], 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
