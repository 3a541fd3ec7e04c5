package bidding

import (
	"fmt"
	"time"

	"github.com/floroz/gavel-client/internal/auction"
	"github.com/floroz/gavel-client/internal/detail"
)

// Affordance is what the bid action looks like for the current view.
type Affordance int

const (
	Unavailable Affordance = iota
	Enabled
	DisabledClosed
	SignInRequired
)

func (a Affordance) String() string {
	switch a {
	case Unavailable:
		return "unavailable"
	case Enabled:
		return "enabled"
	case DisabledClosed:
		return "closed"
	case SignInRequired:
		return "sign-in-required"
	default:
		return fmt.Sprintf("Affordance(%d)", int(a))
	}
}

// Availability decides whether bidding is offered. A closed auction disables
// bidding whatever the minimum; otherwise a missing session asks for sign-in.
func Availability(snap detail.Snapshot, signedIn bool, now time.Time) Affordance {
	if snap.State != detail.StateLoaded || snap.Listing == nil {
		return Unavailable
	}
	if snap.Listing.EffectiveStatus(now) != auction.StatusOpen {
		return DisabledClosed
	}
	if !signedIn {
		return SignInRequired
	}
	return Enabled
}

func (a Affordance) err() error {
	switch a {
	case Enabled:
		return nil
	case DisabledClosed:
		return auction.ErrAuctionClosed
	case SignInRequired:
		return auction.ErrNotSignedIn
	default:
		return detail.ErrNotLoaded
	}
}
