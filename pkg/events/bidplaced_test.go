package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEventType(t *testing.T) {
	assert.Equal(t, "bid.placed", EventTypeBidPlaced.String())
	assert.True(t, EventTypeBidPlaced.IsValid())
	assert.False(t, EventType("auction.ended").IsValid())
	assert.False(t, EventType("").IsValid())
}

func TestBidPlaced_RoundTrip(t *testing.T) {
	event := BidPlaced{
		BidID:     uuid.New(),
		ItemID:    uuid.New(),
		UserID:    uuid.New(),
		Amount:    10001,
		Timestamp: time.Date(2026, 5, 4, 10, 30, 0, 123000000, time.UTC),
	}

	body, err := event.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalBidPlaced(body)
	require.NoError(t, err)
	assert.Equal(t, event.BidID, got.BidID)
	assert.Equal(t, event.ItemID, got.ItemID)
	assert.Equal(t, event.UserID, got.UserID)
	assert.Equal(t, event.Amount, got.Amount)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))
}

func TestUnmarshalBidPlaced(t *testing.T) {
	itemID := uuid.New()

	t.Run("skips unknown fields", func(t *testing.T) {
		var b []byte
		b = protowire.AppendTag(b, 99, protowire.BytesType)
		b = protowire.AppendString(b, "future field")
		b = appendString(b, fieldItemID, itemID.String())
		b = protowire.AppendTag(b, 100, protowire.VarintType)
		b = protowire.AppendVarint(b, 7)

		got, err := UnmarshalBidPlaced(b)
		require.NoError(t, err)
		assert.Equal(t, itemID, got.ItemID)
	})

	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty payload", body: nil},
		{name: "truncated tag", body: []byte{0xff}},
		{name: "item id is not a uuid", body: appendString(nil, fieldItemID, "not-a-uuid")},
		{name: "truncated string", body: protowire.AppendTag(nil, fieldItemID, protowire.BytesType)},
		{name: "bad timestamp", body: protowire.AppendBytes(protowire.AppendTag(appendString(nil, fieldItemID, itemID.String()), fieldTimestamp, protowire.BytesType), []byte{0xff, 0xff})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalBidPlaced(tt.body)
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
