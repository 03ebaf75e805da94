package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// TripSearcher runs the underlying trip query
type TripSearcher interface {
	Search(ctx context.Context, q models.SearchQuery) ([]*models.ScheduledTrip, error)
}

// SearchCache caches search results per query. The loader runs on a miss.
type SearchCache interface {
	TripSearch(
		ctx context.Context,
		q models.SearchQuery,
		ttl time.Duration,
		loader func(ctx context.Context) ([]models.TripSummary, error),
	) ([]models.TripSummary, bool, error)
}

// SearchService handles business logic for trip search
type SearchService struct {
	repo     TripSearcher
	cache    SearchCache
	cacheTTL time.Duration
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// NewSearchService creates a new search service. A nil cache sends every
// search to the store.
func NewSearchService(repo TripSearcher, cache SearchCache, cacheTTL time.Duration, logger *logrus.Logger, m *metrics.Metrics) *SearchService {
	return &SearchService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  m,
	}
}

// SearchTrips returns scheduled trips between two places on a date with
// their available seats. Results may lag a just-committed booking by at
// most the cache TTL.
func (s *SearchService) SearchTrips(ctx context.Context, origin, destination, date string) (*models.SearchResponse, error) {
	q, err := models.ParseSearchQuery(origin, destination, date)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	loader := func(ctx context.Context) ([]models.TripSummary, error) {
		trips, err := s.repo.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		out := make([]models.TripSummary, 0, len(trips))
		for _, trip := range trips {
			out = append(out, models.NewTripSummary(trip))
		}
		return out, nil
	}

	var results []models.TripSummary
	var hit bool
	if s.cache != nil {
		results, hit, err = s.cache.TripSearch(ctx, q, s.cacheTTL, loader)
		s.metrics.ObserveSearchCache(hit)
	} else {
		results, err = loader(ctx)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"origin":      q.Origin,
			"destination": q.Destination,
		}).Error("Trip search failed")
		return nil, storeUnavailable("search trips", err)
	}

	s.logger.WithFields(logrus.Fields{
		"origin":        q.Origin,
		"destination":   q.Destination,
		"date":          date,
		"results":       len(results),
		"cache_hit":     hit,
		"response_time": time.Since(startTime).Milliseconds(),
	}).Debug("Trip search completed")

	if results == nil {
		results = []models.TripSummary{}
	}
	return &models.SearchResponse{
		Status:  "success",
		Query:   q,
		Results: results,
	}, nil
}
