package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// EventType represents the type of domain event
type EventType string

const (
	EventTypeBidPlaced EventType = "bid.placed"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// IsValid checks if the event type is valid
func (e EventType) IsValid() bool {
	switch e {
	case EventTypeBidPlaced:
		return true
	default:
		return false
	}
}

// ExchangeAuctionEvents is the topic exchange all auction events go through.
const ExchangeAuctionEvents = "auction.events"

// Field numbers of the bids.v1.BidPlaced message.
const (
	fieldBidID     protowire.Number = 1
	fieldItemID    protowire.Number = 2
	fieldUserID    protowire.Number = 3
	fieldAmount    protowire.Number = 4
	fieldTimestamp protowire.Number = 5
)

var ErrMalformedEvent = errors.New("malformed event payload")

// BidPlaced is emitted by the backend after a bid has been accepted.
type BidPlaced struct {
	BidID     uuid.UUID
	ItemID    uuid.UUID
	UserID    uuid.UUID
	Amount    int64 // cents
	Timestamp time.Time
}

// Marshal encodes the event in protobuf wire format.
func (e BidPlaced) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, fieldBidID, e.BidID.String())
	b = appendString(b, fieldItemID, e.ItemID.String())
	b = appendString(b, fieldUserID, e.UserID.String())
	if e.Amount != 0 {
		b = protowire.AppendTag(b, fieldAmount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Amount))
	}
	if !e.Timestamp.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(e.Timestamp))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
		}
		b = protowire.AppendTag(b, fieldTimestamp, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	return b, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// UnmarshalBidPlaced decodes a protobuf BidPlaced payload. Unknown fields are skipped.
func UnmarshalBidPlaced(b []byte) (BidPlaced, error) {
	var e BidPlaced
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return BidPlaced{}, fmt.Errorf("%w: %v", ErrMalformedEvent, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldBidID || num == fieldItemID || num == fieldUserID):
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return BidPlaced{}, fmt.Errorf("%w: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			b = b[n:]
			id, err := uuid.Parse(s)
			if err != nil {
				return BidPlaced{}, fmt.Errorf("%w: field %d: %v", ErrMalformedEvent, num, err)
			}
			switch num {
			case fieldBidID:
				e.BidID = id
			case fieldItemID:
				e.ItemID = id
			case fieldUserID:
				e.UserID = id
			}
		case typ == protowire.VarintType && num == fieldAmount:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return BidPlaced{}, fmt.Errorf("%w: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			b = b[n:]
			e.Amount = int64(v)
		case typ == protowire.BytesType && num == fieldTimestamp:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return BidPlaced{}, fmt.Errorf("%w: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			b = b[n:]
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(raw, &ts); err != nil {
				return BidPlaced{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedEvent, err)
			}
			e.Timestamp = ts.AsTime()
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return BidPlaced{}, fmt.Errorf("%w: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if e.ItemID == uuid.Nil {
		return BidPlaced{}, fmt.Errorf("%w: missing item_id", ErrMalformedEvent)
	}
	return e, nil
}
