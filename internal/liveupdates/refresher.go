package liveupdates

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/floroz/gavel-client/internal/detail"
	"github.com/floroz/gavel-client/pkg/events"
)

// View is the auction detail view being kept current.
type View interface {
	CurrentAuction() (uuid.UUID, bool)
	Refresh(ctx context.Context) error
}

// FeedInvalidator drops cached feed pages.
type FeedInvalidator interface {
	Invalidate(ctx context.Context)
}

// RefreshOnBid returns a Handler that invalidates the feed on every bid and
// refreshes view when the bid is for the auction on screen. Either may be nil.
func RefreshOnBid(view View, feed FeedInvalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, event events.BidPlaced) error {
		if feed != nil {
			feed.Invalidate(ctx)
		}
		if view == nil {
			return nil
		}

		id, ok := view.CurrentAuction()
		if !ok || id != event.ItemID {
			return nil
		}

		logger.Info("Refreshing auction after new bid", "auction_id", id, "bid_id", event.BidID)
		err := view.Refresh(ctx)
		if errors.Is(err, detail.ErrStale) || errors.Is(err, detail.ErrNoAuction) {
			return nil
		}
		return err
	}
}
