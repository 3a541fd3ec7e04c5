// Package feed serves the home feed of auction summaries.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/floroz/gavel-client/internal/auction"
)

const (
	DefaultTTL = 30 * time.Second
	homeKey    = "feed:home"
)

// Lister fetches the feed from the backend.
type Lister interface {
	ListAuctions(ctx context.Context) ([]auction.Summary, error)
}

// Service returns the home feed, consulting a cache first.
// Cache failures are logged and never fail the feed.
type Service struct {
	lister Lister
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewService creates a feed service. A nil cache disables caching.
func NewService(lister Lister, cache Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		lister: lister,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Home returns the listing summaries for the home feed.
// Concurrent misses share one backend request.
func (s *Service) Home(ctx context.Context) ([]auction.Summary, error) {
	if s.cache != nil {
		items, ok, err := s.cache.Get(ctx, homeKey)
		if err != nil {
			s.logger.Warn("Feed cache read failed", "key", homeKey, "error", err)
		} else if ok {
			return items, nil
		}
	}

	// The shared request outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(homeKey, func() (any, error) {
		items, err := s.lister.ListAuctions(flightCtx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(flightCtx, homeKey, items, s.ttl); err != nil {
				s.logger.Warn("Feed cache write failed", "key", homeKey, "error", err)
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	if shared {
		s.logger.Debug("Feed request collapsed", "key", homeKey)
	}
	return v.([]auction.Summary), nil
}

// Invalidate drops the cached feed so the next Home call hits the backend.
func (s *Service) Invalidate(ctx context.Context) {
	s.group.Forget(homeKey)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, homeKey); err != nil {
		s.logger.Warn("Feed cache invalidation failed", "key", homeKey, "error", err)
	}
}
