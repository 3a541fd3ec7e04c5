package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status is the bidding state of a listing.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusClosed:
		return true
	default:
		return false
	}
}

// MediaType is the kind of a media attachment.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Media is a single image or video attached to a listing.
type Media struct {
	ID   uuid.UUID `json:"id"`
	URL  string    `json:"url" validate:"required"`
	Type MediaType `json:"type" validate:"required,oneof=image video"`
}

// BidderInfo is optional display information about who placed a bid.
type BidderInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Bid represents a user's bid on a listing
type Bid struct {
	ID        uuid.UUID   `json:"id" validate:"required"`
	UserID    uuid.UUID   `json:"userId"`
	Amount    Amount      `json:"amount" validate:"gt=0"`
	User      *BidderInfo `json:"user,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PlacedBid is the backend's acknowledgement of an accepted bid.
type PlacedBid struct {
	ID     uuid.UUID `json:"id" validate:"required"`
	Amount Amount    `json:"amount" validate:"gt=0"`
}

// Summary is the feed representation of a listing. Media holds at most the thumbnail.
type Summary struct {
	ID            uuid.UUID  `json:"id" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	Category      string     `json:"category"`
	StartingPrice Amount     `json:"startingPrice" validate:"gte=0"`
	CurrentPrice  Amount     `json:"currentPrice" validate:"gte=0"`
	Status        Status     `json:"status" validate:"required,oneof=open closed"`
	StartsAt      *time.Time `json:"startsAt,omitempty"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	Media         []Media    `json:"media" validate:"dive"`
}

// Listing is the full detail of an auction as returned by the backend.
type Listing struct {
	ID            uuid.UUID  `json:"id" validate:"required"`
	SellerID      uuid.UUID  `json:"sellerId"`
	Title         string     `json:"title" validate:"required"`
	Category      string     `json:"category"`
	Description   string     `json:"description"`
	StartingPrice Amount     `json:"startingPrice" validate:"gte=0"`
	CurrentPrice  Amount     `json:"currentPrice" validate:"gte=0"`
	MaxIncrement  Amount     `json:"maxIncrement" validate:"gte=0"`
	Status        Status     `json:"status" validate:"required,oneof=open closed"`
	StartsAt      *time.Time `json:"startsAt,omitempty"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	Media         []Media    `json:"media" validate:"dive"`
	Bids          []Bid      `json:"bids" validate:"dive"`
}

// HighestBid returns the bid with the strictly greatest amount.
// On equal amounts the earliest bid in the sequence wins.
func HighestBid(bids []Bid) (Bid, bool) {
	if len(bids) == 0 {
		return Bid{}, false
	}
	highest := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > highest.Amount {
			highest = b
		}
	}
	return highest, true
}

// MinimumNextBid is one minor unit above the greater of the starting and current price.
func MinimumNextBid(startingPrice, currentPrice Amount) Amount {
	return MaxAmount(startingPrice, currentPrice) + MinorUnit
}

// EffectiveStatus applies the time window to an explicit status.
func EffectiveStatus(status Status, startsAt, endsAt *time.Time, now time.Time) Status {
	if status == StatusClosed {
		return StatusClosed
	}
	if startsAt != nil && now.Before(*startsAt) {
		return StatusClosed
	}
	if endsAt != nil && !now.Before(*endsAt) {
		return StatusClosed
	}
	return StatusOpen
}

// HighestBid returns the listing's highest bid, if any.
func (l *Listing) HighestBid() (Bid, bool) {
	return HighestBid(l.Bids)
}

// MinimumNextBid returns the smallest amount the client will submit.
func (l *Listing) MinimumNextBid() Amount {
	return MinimumNextBid(l.StartingPrice, l.CurrentPrice)
}

// EffectiveStatus returns the listing's status at now.
func (l *Listing) EffectiveStatus(now time.Time) Status {
	return EffectiveStatus(l.Status, l.StartsAt, l.EndsAt, now)
}

// Summary projects the listing to its feed form, keeping only the first media item.
func (l *Listing) Summary() Summary {
	s := Summary{
		ID:            l.ID,
		Title:         l.Title,
		Category:      l.Category,
		StartingPrice: l.StartingPrice,
		CurrentPrice:  l.CurrentPrice,
		Status:        l.Status,
		StartsAt:      l.StartsAt,
		EndsAt:        l.EndsAt,
		Media:         []Media{},
	}
	if len(l.Media) > 0 {
		s.Media = append(s.Media, l.Media[0])
	}
	return s
}

// EffectiveStatus returns the summary's status at now.
func (s *Summary) EffectiveStatus(now time.Time) Status {
	return EffectiveStatus(s.Status, s.StartsAt, s.EndsAt, now)
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	c := *l
	c.Media = append([]Media(nil), l.Media...)
	c.Bids = make([]Bid, len(l.Bids))
	for i, b := range l.Bids {
		c.Bids[i] = b
		if b.User != nil {
			u := *b.User
			c.Bids[i].User = &u
		}
	}
	if l.StartsAt != nil {
		t := *l.StartsAt
		c.StartsAt = &t
	}
	if l.EndsAt != nil {
		t := *l.EndsAt
		c.EndsAt = &t
	}
	return &c
}
