package fakebackend

import (
	"context"
	"fmt"
	"time"

	"github.com/floroz/gavel-client/internal/auction"
)

// Demo account created by Seed.
const (
	DemoEmail    = "demo@gavel.local"
	DemoPassword = "gavel-demo-password"
)

// Seed registers the demo bidder and a seller, then lists a handful of auctions
// around now: open, closed, not yet started and capped by a maximum increment.
func Seed(ctx context.Context, svc *Service, now time.Time) error {
	if _, err := svc.Register(ctx, DemoEmail, DemoPassword, "Demo Bidder"); err != nil {
		return fmt.Errorf("failed to register demo user: %w", err)
	}
	seller, err := svc.Register(ctx, "seller@gavel.local", "gavel-seller-password", "Gavel Seller")
	if err != nil {
		return fmt.Errorf("failed to register seller: %w", err)
	}

	in := func(d time.Duration) *time.Time {
		t := now.Add(d).UTC()
		return &t
	}

	listings := []auction.Listing{
		{
			SellerID:      seller.ID,
			Title:         "Vintage Leica M3",
			Category:      "Cameras",
			Description:   "1957 body, serviced last year. Shutter speeds accurate.",
			StartingPrice: 45000,
			EndsAt:        in(48 * time.Hour),
			Media: []auction.Media{
				{URL: "https://images.gavel.local/leica-front.jpg", Type: auction.MediaTypeImage},
				{URL: "https://images.gavel.local/leica-top.jpg", Type: auction.MediaTypeImage},
				{URL: "https://images.gavel.local/leica-shutter.mp4", Type: auction.MediaTypeVideo},
			},
		},
		{
			SellerID:      seller.ID,
			Title:         "Mid-century teak sideboard",
			Category:      "Furniture",
			StartingPrice: 30000,
			MaxIncrement:  5000,
			EndsAt:        in(6 * time.Hour),
			Media: []auction.Media{
				{URL: "https://images.gavel.local/sideboard.jpg", Type: auction.MediaTypeImage},
			},
		},
		{
			SellerID:      seller.ID,
			Title:         "Omega Seamaster 1968",
			Category:      "Watches",
			StartingPrice: 120000,
			Status:        auction.StatusClosed,
		},
		{
			SellerID:      seller.ID,
			Title:         "First edition Dune",
			Category:      "Books",
			StartingPrice: 80000,
			StartsAt:      in(24 * time.Hour),
			EndsAt:        in(72 * time.Hour),
		},
	}

	for _, l := range listings {
		if _, err := svc.CreateAuction(ctx, l); err != nil {
			return fmt.Errorf("failed to seed %q: %w", l.Title, err)
		}
	}
	return nil
}
