package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/floroz/gavel-client/internal/auction"
	"github.com/floroz/gavel-client/internal/bidding"
	"github.com/floroz/gavel-client/internal/detail"
)

func renderFeed(w io.Writer, items []auction.Summary) {
	now := time.Now()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tSTATUS")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Title, it.Category, auction.MaxAmount(it.StartingPrice, it.CurrentPrice), it.EffectiveStatus(now))
	}
	_ = tw.Flush()
}

func renderDetail(w io.Writer, snap detail.Snapshot, affordance bidding.Affordance) {
	if snap.State == detail.StateErrored {
		fmt.Fprintf(w, "%v\n", snap.Err)
		return
	}
	l := snap.Listing
	if l == nil {
		return
	}

	fmt.Fprintf(w, "%s  [%s]\n", l.Title, l.EffectiveStatus(time.Now()))
	if l.Description != "" {
		fmt.Fprintln(w, l.Description)
	}
	fmt.Fprintf(w, "Starting price:  %s\n", l.StartingPrice)
	fmt.Fprintf(w, "Current price:   %s\n", l.CurrentPrice)
	fmt.Fprintf(w, "Minimum bid:     %s\n", l.MinimumNextBid())
	if l.MaxIncrement > 0 {
		fmt.Fprintf(w, "Max increment:   %s\n", l.MaxIncrement)
	}
	if l.EndsAt != nil {
		fmt.Fprintf(w, "Ends:            %s\n", l.EndsAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "Media:           %d\n", len(l.Media))
	fmt.Fprintf(w, "Bidding:         %s\n", affordance)

	if highest, ok := l.HighestBid(); ok {
		fmt.Fprintf(w, "Highest bid:     %s by %s\n", highest.Amount, bidderName(highest))
	}
	if len(l.Bids) == 0 {
		fmt.Fprintln(w, "No bids yet")
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AMOUNT\tBIDDER\tPLACED")
	for _, b := range l.Bids {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Amount, bidderName(b), b.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	_ = tw.Flush()
}

func bidderName(b auction.Bid) string {
	if b.User != nil && b.User.Name != "" {
		return b.User.Name
	}
	return b.UserID.String()[:8]
}
