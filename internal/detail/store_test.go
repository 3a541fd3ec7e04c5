package detail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/gavel-client/internal/auction"
)

// MockFetcher is a mock implementation of Fetcher for testing
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Listing), args.Error(1)
}

// gatedFetcher blocks each GetAuction call until the test releases it.
type gatedFetcher struct {
	mu      sync.Mutex
	pending map[uuid.UUID][]chan result
	started chan uuid.UUID
}

type result struct {
	listing *auction.Listing
	err     error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{pending: make(map[uuid.UUID][]chan result), started: make(chan uuid.UUID, 16)}
}

func (g *gatedFetcher) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Listing, error) {
	ch := make(chan result, 1)
	g.mu.Lock()
	g.pending[id] = append(g.pending[id], ch)
	g.mu.Unlock()
	g.started <- id
	r := <-ch
	return r.listing, r.err
}

func (g *gatedFetcher) release(id uuid.UUID, listing *auction.Listing, err error) {
	g.mu.Lock()
	ch := g.pending[id][0]
	g.pending[id] = g.pending[id][1:]
	g.mu.Unlock()
	ch <- result{listing: listing, err: err}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testListing(id uuid.UUID, starting, current auction.Amount, bids ...auction.Amount) *auction.Listing {
	l := &auction.Listing{
		ID:            id,
		Title:         "Test Item",
		StartingPrice: starting,
		CurrentPrice:  current,
		Status:        auction.StatusOpen,
		Media: []auction.Media{
			{ID: uuid.New(), URL: "https://cdn.example.com/1.jpg", Type: auction.MediaTypeImage},
			{ID: uuid.New(), URL: "https://cdn.example.com/2.mp4", Type: auction.MediaTypeVideo},
		},
	}
	for _, amount := range bids {
		l.Bids = append(l.Bids, auction.Bid{ID: uuid.New(), UserID: uuid.New(), Amount: amount})
	}
	return l
}

func TestStore_Load(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		setupMock func(*MockFetcher)
		wantState State
		check     func(*testing.T, error, Snapshot)
	}{
		{
			name: "success replaces the snapshot",
			setupMock: func(f *MockFetcher) {
				f.On("GetAuction", mock.Anything, id).Return(testListing(id, 10000, 10000), nil)
			},
			wantState: StateLoaded,
			check: func(t *testing.T, err error, snap Snapshot) {
				require.NoError(t, err)
				assert.Equal(t, id, snap.Listing.ID)
				assert.Nil(t, snap.Err)
				min, ok := snap.MinimumNextBid()
				assert.True(t, ok)
				assert.Equal(t, auction.Amount(10001), min)
			},
		},
		{
			name: "failure surfaces an opaque load error",
			setupMock: func(f *MockFetcher) {
				f.On("GetAuction", mock.Anything, id).Return(nil, errors.New("connection refused"))
			},
			wantState: StateErrored,
			check: func(t *testing.T, err error, snap Snapshot) {
				var loadErr *auction.LoadError
				require.ErrorAs(t, err, &loadErr)
				assert.Equal(t, "unable to load auction details", err.Error())
				assert.Equal(t, id, loadErr.AuctionID)
				assert.Equal(t, err, snap.Err)
				assert.Nil(t, snap.Listing)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			fetcher := new(MockFetcher)
			tt.setupMock(fetcher)
			store := NewStore(fetcher, discardLogger())

			// Act
			err := store.Load(context.Background(), id)

			// Assert
			snap := store.Snapshot()
			assert.Equal(t, tt.wantState, snap.State)
			assert.Equal(t, id, snap.AuctionID)
			tt.check(t, err, snap)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestStore_LoadResetsTransientState(t *testing.T) {
	id := uuid.New()
	fetcher := new(MockFetcher)
	fetcher.On("GetAuction", mock.Anything, id).Return(testListing(id, 10000, 12000), nil)
	store := NewStore(fetcher, discardLogger())
	require.NoError(t, store.Load(context.Background(), id))

	require.NoError(t, store.SetActiveMedia(1))
	require.NoError(t, store.OpenBidDialog())
	store.SetBidAmount("99")
	require.NoError(t, store.RejectBid(id, "too low"))

	require.NoError(t, store.Refresh(context.Background()))

	snap := store.Snapshot()
	assert.Equal(t, 0, snap.ActiveMedia)
	assert.Equal(t, BidDialog{}, snap.Dialog)
	fetcher.AssertNumberOfCalls(t, "GetAuction", 2)
}

func TestStore_MinimumNextBidForAllLoadedAuctions(t *testing.T) {
	cases := []struct{ starting, current auction.Amount }{
		{10000, 10000},
		{10000, 15050},
		{500, 0},
		{0, 0},
		{1, 999999},
	}
	for _, c := range cases {
		id := uuid.New()
		fetcher := new(MockFetcher)
		fetcher.On("GetAuction", mock.Anything, id).Return(testListing(id, c.starting, c.current), nil)
		store := NewStore(fetcher, discardLogger())
		require.NoError(t, store.Load(context.Background(), id))

		min, ok := store.MinimumNextBid()
		require.True(t, ok)
		assert.Equal(t, auction.MaxAmount(c.starting, c.current)+auction.MinorUnit, min)
	}
}

func TestStore_HighestBid(t *testing.T) {
	id := uuid.New()
	fetcher := new(MockFetcher)
	fetcher.On("GetAuction", mock.Anything, id).Return(testListing(id, 10000, 20000, 15000, 20000, 18000), nil)
	store := NewStore(fetcher, discardLogger())

	_, ok := store.HighestBid()
	assert.False(t, ok, "nothing loaded yet")

	require.NoError(t, store.Load(context.Background(), id))

	highest, ok := store.HighestBid()
	require.True(t, ok)
	assert.Equal(t, auction.Amount(20000), highest.Amount)
}

func TestStore_RefreshWhenIdle(t *testing.T) {
	store := NewStore(new(MockFetcher), discardLogger())
	assert.ErrorIs(t, store.Refresh(context.Background()), ErrNoAuction)
}

func TestStore_CloseDuringLoadDiscardsResult(t *testing.T) {
	// Arrange
	first, second := uuid.New(), uuid.New()
	fetcher := newGatedFetcher()
	store := NewStore(fetcher, discardLogger())

	firstDone := make(chan error, 1)
	go func() { firstDone <- store.Load(context.Background(), first) }()
	require.Equal(t, first, <-fetcher.started)

	// Act: close the view and open a different auction while the first load is in flight
	store.Close()
	assert.Equal(t, StateIdle, store.Snapshot().State)

	secondDone := make(chan error, 1)
	go func() { secondDone <- store.Load(context.Background(), second) }()
	require.Equal(t, second, <-fetcher.started)

	fetcher.release(second, testListing(second, 500, 700), nil)
	require.NoError(t, <-secondDone)
	fetcher.release(first, testListing(first, 10000, 99999), nil)

	// Assert
	assert.ErrorIs(t, <-firstDone, ErrStale)
	snap := store.Snapshot()
	assert.Equal(t, second, snap.AuctionID)
	assert.Equal(t, second, snap.Listing.ID)
	assert.Equal(t, auction.Amount(700), snap.Listing.CurrentPrice)
}

func TestStore_CloseDuringLoadKeepsIdle(t *testing.T) {
	id := uuid.New()
	fetcher := newGatedFetcher()
	store := NewStore(fetcher, discardLogger())

	done := make(chan error, 1)
	go func() { done <- store.Load(context.Background(), id) }()
	<-fetcher.started

	store.Close()
	fetcher.release(id, nil, errors.New("boom"))

	assert.ErrorIs(t, <-done, ErrStale)
	snap := store.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Err)
}

func TestStore_LatestRefreshWins(t *testing.T) {
	id := uuid.New()
	fetcher := newGatedFetcher()
	store := NewStore(fetcher, discardLogger())

	older := make(chan error, 1)
	go func() { older <- store.Load(context.Background(), id) }()
	<-fetcher.started
	newer := make(chan error, 1)
	go func() { newer <- store.Load(context.Background(), id) }()
	<-fetcher.started

	fetcher.release(id, testListing(id, 100, 100), nil)
	fetcher.release(id, testListing(id, 100, 300), nil)

	assert.ErrorIs(t, <-older, ErrStale)
	require.NoError(t, <-newer)
	assert.Equal(t, auction.Amount(300), store.Snapshot().Listing.CurrentPrice)
}

func TestStore_SetActiveMedia(t *testing.T) {
	id := uuid.New()
	fetcher := new(MockFetcher)
	fetcher.On("GetAuction", mock.Anything, id).Return(testListing(id, 100, 100), nil)
	store := NewStore(fetcher, discardLogger())

	assert.ErrorIs(t, store.SetActiveMedia(0), ErrNotLoaded)
	require.NoError(t, store.Load(context.Background(), id))

	assert.NoError(t, store.SetActiveMedia(1))
	assert.Equal(t, 1, store.Snapshot().ActiveMedia)
	assert.ErrorIs(t, store.SetActiveMedia(2), ErrMediaOutOfRange)
	assert.ErrorIs(t, store.SetActiveMedia(-1), ErrMediaOutOfRange)
	assert.Equal(t, 1, store.Snapshot().ActiveMedia)
}

func TestStore_OpenBidDialog(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Minute)

	tests := []struct {
		name    string
		listing func(uuid.UUID) *auction.Listing
		wantErr error
		wantAmt string
	}{
		{
			name:    "open auction prefills the minimum",
			listing: func(id uuid.UUID) *auction.Listing { return testListing(id, 10000, 10000) },
			wantAmt: "100.01",
		},
		{
			name: "explicitly closed auction is refused",
			listing: func(id uuid.UUID) *auction.Listing {
				l := testListing(id, 10000, 10000)
				l.Status = auction.StatusClosed
				return l
			},
			wantErr: auction.ErrAuctionClosed,
		},
		{
			name: "auction past its end time is refused",
			listing: func(id uuid.UUID) *auction.Listing {
				l := testListing(id, 10000, 10000)
				l.EndsAt = &ended
				return l
			},
			wantErr: auction.ErrAuctionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			fetcher := new(MockFetcher)
			fetcher.On("GetAuction", mock.Anything, id).Return(tt.listing(id), nil)
			store := NewStore(fetcher, discardLogger(), WithClock(func() time.Time { return now }))
			require.NoError(t, store.Load(context.Background(), id))

			err := store.OpenBidDialog()

			dialog := store.Snapshot().Dialog
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, dialog.Open)
				return
			}
			require.NoError(t, err)
			assert.True(t, dialog.Open)
			assert.Equal(t, tt.wantAmt, dialog.Amount)
		})
	}
}

func TestStore_SubmissionBookkeeping(t *testing.T) {
	id := uuid.New()
	fetcher := new(MockFetcher)
	fetcher.On("GetAuction", mock.Anything, mock.Anything).Return(testListing(id, 100, 100), nil)
	store := NewStore(fetcher, discardLogger())
	require.NoError(t, store.Load(context.Background(), id))
	require.NoError(t, store.OpenBidDialog())

	t.Run("begin closes the dialog and refuses a second submission", func(t *testing.T) {
		token, err := store.BeginSubmission(id)
		require.NoError(t, err)
		snap := store.Snapshot()
		assert.False(t, snap.Dialog.Open)
		assert.True(t, snap.Dialog.Submitting)

		_, err = store.BeginSubmission(id)
		assert.ErrorIs(t, err, auction.ErrSubmissionInFlight)
		assert.ErrorIs(t, store.OpenBidDialog(), auction.ErrSubmissionInFlight)

		_, err = store.BeginSubmission(uuid.New())
		assert.ErrorIs(t, err, ErrStale)

		t.Run("a refresh of the same auction keeps the in-flight marker", func(t *testing.T) {
			require.NoError(t, store.Refresh(context.Background()))
			assert.True(t, store.Snapshot().Dialog.Submitting)
		})

		require.NoError(t, store.FailSubmission(token, "Bid too low"))
		snap = store.Snapshot()
		assert.True(t, snap.Dialog.Open)
		assert.False(t, snap.Dialog.Submitting)
		assert.Equal(t, "Bid too low", snap.Dialog.Error)
	})

	t.Run("complete clears the dialog and reloads without publishing the old listing", func(t *testing.T) {
		token, err := store.BeginSubmission(id)
		require.NoError(t, err)

		var seen []Snapshot
		sub := store.Subscribe(func(s Snapshot) { seen = append(seen, s) })
		defer sub.Unsubscribe()

		require.NoError(t, store.CompleteSubmission(context.Background(), token))

		require.Len(t, seen, 2)
		assert.Equal(t, StateLoading, seen[0].State)
		assert.Nil(t, seen[0].Listing)
		assert.Equal(t, StateLoaded, seen[1].State)
		assert.Equal(t, BidDialog{}, store.Snapshot().Dialog)
	})

	t.Run("reject is dropped for another auction", func(t *testing.T) {
		require.NoError(t, store.OpenBidDialog())
		assert.ErrorIs(t, store.RejectBid(uuid.New(), "too low"), ErrStale)
		assert.Empty(t, store.Snapshot().Dialog.Error)

		require.NoError(t, store.RejectBid(id, "too low"))
		assert.Equal(t, "too low", store.Snapshot().Dialog.Error)
		store.CloseBidDialog()
	})

	t.Run("a token from a closed view is stale", func(t *testing.T) {
		token, err := store.BeginSubmission(id)
		require.NoError(t, err)

		store.Close()
		require.NoError(t, store.Load(context.Background(), id))

		assert.ErrorIs(t, store.FailSubmission(token, "x"), ErrStale)
		assert.ErrorIs(t, store.CompleteSubmission(context.Background(), token), ErrStale)
		assert.Equal(t, BidDialog{}, store.Snapshot().Dialog)
	})
}

func TestStore_Subscribe(t *testing.T) {
	id := uuid.New()
	fetcher := new(MockFetcher)
	fetcher.On("GetAuction", mock.Anything, id).Return(testListing(id, 100, 100), nil)
	store := NewStore(fetcher, discardLogger())

	var states []State
	var versions []uint64
	sub := store.Subscribe(func(s Snapshot) {
		states = append(states, s.State)
		versions = append(versions, s.Version)
	})

	require.NoError(t, store.Load(context.Background(), id))
	store.Close()

	assert.Equal(t, []State{StateLoading, StateLoaded, StateIdle}, states)
	assert.IsIncreasing(t, versions)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, store.Load(context.Background(), id))
	assert.Len(t, states, 3)
}

func TestStore_SubscriberMayReadStore(t *testing.T) {
	id := uuid.New()
	fetcher := new(MockFetcher)
	fetcher.On("GetAuction", mock.Anything, id).Return(testListing(id, 100, 100), nil)
	store := NewStore(fetcher, discardLogger())

	var seen []State
	store.Subscribe(func(Snapshot) {
		seen = append(seen, store.Snapshot().State)
	})

	require.NoError(t, store.Load(context.Background(), id))
	assert.Equal(t, []State{StateLoading, StateLoaded}, seen)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "State(9)", State(9).String())
}
