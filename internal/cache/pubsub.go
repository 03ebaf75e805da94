package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// InventoryPubSub fans committed inventory changes out to every API instance
type InventoryPubSub struct {
	rdb     *redis.Client
	cache   *Cache
	channel string
}

func NewInventoryPubSub(rdb *redis.Client, cache *Cache) *InventoryPubSub {
	return &InventoryPubSub{
		rdb:     rdb,
		cache:   cache,
		channel: ChannelInventoryChanged(),
	}
}

// InventoryChanged drops stale search results for the trip and publishes
// the new seat snapshot. The event is published even when invalidation fails.
func (p *InventoryPubSub) InventoryChanged(ctx context.Context, trip *models.ScheduledTrip) error {
	var invalidateErr error
	if p.cache != nil {
		invalidateErr = p.cache.InvalidateTrip(ctx, trip)
	}
	return errors.Join(invalidateErr, p.Publish(ctx, models.NewInventoryEvent(trip)))
}

func (p *InventoryPubSub) Publish(ctx context.Context, ev models.InventoryEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe delivers events to handler until ctx is cancelled
func (p *InventoryPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev models.InventoryEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.InventoryEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil && ev.TripID != "" {
				handler(ctx, ev)
			}
		}
	}
}
