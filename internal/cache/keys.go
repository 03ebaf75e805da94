package cache

import (
	"fmt"

	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const ns = "seatres:v1"

func KeyTripSearch(q models.SearchQuery) string {
	return fmt.Sprintf("%s:search:%s", ns, q.CacheKey())
}

func KeyIdempotency(commuterID, idemKey string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, commuterID, idemKey)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelInventoryChanged() string {
	return ns + ":inventory:changed"
}
