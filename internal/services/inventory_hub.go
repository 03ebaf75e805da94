package services

import (
	"context"
	"sync"

	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const subscriberBuffer = 8

// InventoryHub fans inventory events out to local subscribers, one set per
// trip. Slow subscribers miss events rather than block the broadcaster; each
// event carries the full seat snapshot, so the next one catches them up.
type InventoryHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan models.InventoryEvent]struct{}
}

// NewInventoryHub creates an empty hub
func NewInventoryHub() *InventoryHub {
	return &InventoryHub{subs: make(map[string]map[chan models.InventoryEvent]struct{})}
}

// Subscribe registers for a trip's events. The returned func unsubscribes
// and closes the channel.
func (h *InventoryHub) Subscribe(tripID string) (<-chan models.InventoryEvent, func()) {
	ch := make(chan models.InventoryEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[tripID] == nil {
		h.subs[tripID] = make(map[chan models.InventoryEvent]struct{})
	}
	h.subs[tripID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[tripID], ch)
			if len(h.subs[tripID]) == 0 {
				delete(h.subs, tripID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast delivers ev to the trip's subscribers without blocking
func (h *InventoryHub) Broadcast(_ context.Context, ev models.InventoryEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.TripID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// InventoryChanged broadcasts the trip snapshot locally. Used as the
// publisher when redis is not configured.
func (h *InventoryHub) InventoryChanged(ctx context.Context, trip *models.ScheduledTrip) error {
	h.Broadcast(ctx, models.NewInventoryEvent(trip))
	return nil
}

// Subscribers returns the number of subscribers for a trip
func (h *InventoryHub) Subscribers(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tripID])
}
