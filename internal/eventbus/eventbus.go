// Package eventbus fans persisted events out to independent projections,
// grounded on the teacher's pkg/events.Broker (a map-of-channels
// subscriber registry with select/default non-blocking delivery),
// adapted from "drop silently when a subscriber's buffer is full" to
// "tear the subscriber down and surface ErrSubscriberLagged" — a lost
// event would silently desynchronize a projection from the durable log.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/internal/eventstore"
	"github.com/cuemby/blister/pkg/blistermetrics"
	"github.com/cuemby/blister/pkg/wireevent"
)

// subscriberBuffer bounds how far a subscriber may lag the persist
// rate before it is torn down.
const subscriberBuffer = 256

// Bus serializes writes against the durable log and fans each
// persisted event out to every live subscription.
type Bus struct {
	store *eventstore.Store

	// mu serializes Persist+broadcast against Subscribe, so a
	// subscription's journal snapshot and its live feed never overlap
	// and never gap: an event is in exactly one of the two.
	mu sync.Mutex

	subMu sync.RWMutex
	subs  map[*Subscription]chan wireevent.ExternalRepresentation
}

// New wraps a durable event store with a broadcast fan-out.
func New(store *eventstore.Store) *Bus {
	return &Bus{
		store: store,
		subs:  make(map[*Subscription]chan wireevent.ExternalRepresentation),
	}
}

// Subscription is a single projection's live feed from the bus.
type Subscription struct {
	bus    *Bus
	events chan wireevent.ExternalRepresentation
}

// Emit persists event and, once durable, broadcasts it to every
// subscription registered at the time of the call.
func (b *Bus) Emit(event domainevent.Event) (wireevent.ExternalRepresentation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ext, err := b.store.Persist(event)
	if err != nil {
		return wireevent.ExternalRepresentation{}, err
	}
	blistermetrics.EventsPersisted.Inc()
	b.broadcast(ext)
	return ext, nil
}

// Subscribe registers a new subscription and atomically returns the
// journal as it stood at registration time. Every event persisted
// before this call is in the returned journal; every event persisted
// after it arrives on the subscription's channel. No event appears in
// both, and none is skipped.
func (b *Bus) Subscribe() (*Subscription, []wireevent.ExternalRepresentation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		bus:    b,
		events: make(chan wireevent.ExternalRepresentation, subscriberBuffer),
	}

	b.subMu.Lock()
	b.subs[sub] = sub.events
	b.subMu.Unlock()

	journal, err := b.store.Journal()
	if err != nil {
		b.subMu.Lock()
		delete(b.subs, sub)
		b.subMu.Unlock()
		return nil, nil, err
	}
	return sub, journal, nil
}

// Unsubscribe removes sub from the fan-out. Safe to call more than
// once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.events)
	}
}

func (b *Bus) broadcast(ext wireevent.ExternalRepresentation) {
	b.subMu.RLock()
	var lagged []*Subscription
	for sub, ch := range b.subs {
		select {
		case ch <- ext:
		default:
			lagged = append(lagged, sub)
		}
	}
	b.subMu.RUnlock()

	if len(lagged) == 0 {
		return
	}

	b.subMu.Lock()
	for _, sub := range lagged {
		if ch, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(ch)
			blistermetrics.SubscriberLag.Inc()
		}
	}
	b.subMu.Unlock()
}

// Poll blocks for the next event on the subscription, returning
// ErrSubscriberLagged if the bus tore this subscription down for
// falling behind, or ctx.Err() if ctx is done first.
func (s *Subscription) Poll(ctx context.Context) (wireevent.ExternalRepresentation, error) {
	select {
	case ext, ok := <-s.events:
		if !ok {
			return wireevent.ExternalRepresentation{}, fmt.Errorf("%w", blisterr.ErrSubscriberLagged)
		}
		return ext, nil
	case <-ctx.Done():
		return wireevent.ExternalRepresentation{}, ctx.Err()
	}
}
