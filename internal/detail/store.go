// Package detail holds the state of the auction detail view.
package detail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/gavel-client/internal/auction"
)

var (
	ErrStale           = errors.New("auction view changed before the result arrived")
	ErrNoAuction       = errors.New("no auction is open")
	ErrNotLoaded       = errors.New("auction details are not loaded")
	ErrMediaOutOfRange = errors.New("media index out of range")
)

// State is the lifecycle of one auction view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher loads the full detail of an auction.
type Fetcher interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*auction.Listing, error)
}

// BidDialog is the bid-entry affordance.
type BidDialog struct {
	Open       bool
	Amount     string
	Error      string
	Submitting bool
}

// Snapshot is a point-in-time copy of the view. Listing is shared and must not be modified.
type Snapshot struct {
	Version     uint64
	AuctionID   uuid.UUID
	State       State
	Listing     *auction.Listing
	Err         error
	ActiveMedia int
	Dialog      BidDialog
}

// HighestBid returns the loaded listing's highest bid.
func (s Snapshot) HighestBid() (auction.Bid, bool) {
	if s.Listing == nil {
		return auction.Bid{}, false
	}
	return s.Listing.HighestBid()
}

// MinimumNextBid returns the loaded listing's minimum next bid.
func (s Snapshot) MinimumNextBid() (auction.Amount, bool) {
	if s.Listing == nil {
		return 0, false
	}
	return s.Listing.MinimumNextBid(), true
}

// SubmissionToken identifies the view a submission was started in.
type SubmissionToken uint64

// Store owns the snapshot of the auction currently on screen.
// All methods are safe for concurrent use; network calls run outside the lock.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	snap       Snapshot
	version    uint64
	generation uint64 // bumped by every Load and Close
	view       uint64 // bumped when the viewed auction changes or closes
	subs       map[uint64]func(Snapshot)
	nextSubID  uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for the effective status.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an idle store.
func NewStore(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Snapshot returns the current view state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// CurrentAuction returns the id of the auction on screen.
func (s *Store) CurrentAuction() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.State == StateIdle {
		return uuid.Nil, false
	}
	return s.snap.AuctionID, true
}

// HighestBid returns the highest bid of the loaded auction.
func (s *Store) HighestBid() (auction.Bid, bool) {
	return s.Snapshot().HighestBid()
}

// MinimumNextBid returns the minimum next bid of the loaded auction.
func (s *Store) MinimumNextBid() (auction.Amount, bool) {
	return s.Snapshot().MinimumNextBid()
}

// Load fetches the auction and replaces the snapshot. A result that arrives
// after a newer Load or a Close is discarded and ErrStale is returned.
func (s *Store) Load(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	sameView := s.snap.State != StateIdle && s.snap.AuctionID == id
	if !sameView {
		s.view++
	}
	gen := s.startLoadLocked(id, sameView && s.snap.Dialog.Submitting)
	notify := s.commitLocked()
	s.mu.Unlock()
	notify()

	return s.fetch(ctx, id, gen)
}

// startLoadLocked moves the view to loading and returns the new generation.
func (s *Store) startLoadLocked(id uuid.UUID, submitting bool) uint64 {
	s.generation++
	s.snap = Snapshot{
		AuctionID: id,
		State:     StateLoading,
		Dialog:    BidDialog{Submitting: submitting},
	}
	return s.generation
}

func (s *Store) fetch(ctx context.Context, id uuid.UUID, gen uint64) error {
	listing, err := s.fetcher.GetAuction(ctx, id)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale auction load", "auction_id", id)
		return ErrStale
	}
	if err != nil {
		loadErr := &auction.LoadError{AuctionID: id, Err: err}
		s.snap.State = StateErrored
		s.snap.Err = loadErr
		notify := s.commitLocked()
		s.mu.Unlock()
		notify()
		s.logger.Warn("Failed to load auction", "auction_id", id, "error", err)
		return loadErr
	}
	s.snap.State = StateLoaded
	s.snap.Listing = listing
	notify := s.commitLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// Refresh reloads the auction on screen.
func (s *Store) Refresh(ctx context.Context) error {
	id, ok := s.CurrentAuction()
	if !ok {
		return ErrNoAuction
	}
	return s.Load(ctx, id)
}

// Close leaves the view. Results of requests still in flight are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	s.generation++
	s.view++
	s.snap = Snapshot{State: StateIdle}
	notify := s.commitLocked()
	s.mu.Unlock()
	notify()
}

// SetActiveMedia selects the media item shown in the gallery.
func (s *Store) SetActiveMedia(i int) error {
	return s.update(func(snap *Snapshot) error {
		if snap.State != StateLoaded {
			return ErrNotLoaded
		}
		if i < 0 || i >= len(snap.Listing.Media) {
			return ErrMediaOutOfRange
		}
		snap.ActiveMedia = i
		return nil
	})
}

// OpenBidDialog opens the bid entry prefilled with the minimum next bid.
func (s *Store) OpenBidDialog() error {
	now := s.now()
	return s.update(func(snap *Snapshot) error {
		if snap.State != StateLoaded {
			return ErrNotLoaded
		}
		if snap.Listing.EffectiveStatus(now) != auction.StatusOpen {
			return auction.ErrAuctionClosed
		}
		if snap.Dialog.Submitting {
			return auction.ErrSubmissionInFlight
		}
		snap.Dialog = BidDialog{Open: true, Amount: snap.Listing.MinimumNextBid().String()}
		return nil
	})
}

// CloseBidDialog dismisses the bid entry and clears its input.
func (s *Store) CloseBidDialog() {
	_ = s.update(func(snap *Snapshot) error {
		snap.Dialog = BidDialog{Submitting: snap.Dialog.Submitting}
		return nil
	})
}

// SetBidAmount records the text typed into the bid entry.
func (s *Store) SetBidAmount(amount string) {
	_ = s.update(func(snap *Snapshot) error {
		snap.Dialog.Amount = amount
		return nil
	})
}

// RejectBid records a local validation failure for auctionID. The dialog
// stays open. It returns ErrStale when another auction is on screen.
func (s *Store) RejectBid(auctionID uuid.UUID, message string) error {
	return s.update(func(snap *Snapshot) error {
		if snap.AuctionID != auctionID || snap.State != StateLoaded {
			return ErrStale
		}
		snap.Dialog.Open = true
		snap.Dialog.Error = message
		return nil
	})
}

// BeginSubmission closes the dialog and marks a submission in flight for
// auctionID. It returns ErrStale when another auction is on screen.
func (s *Store) BeginSubmission(auctionID uuid.UUID) (SubmissionToken, error) {
	var token SubmissionToken
	err := s.update(func(snap *Snapshot) error {
		if snap.AuctionID != auctionID {
			return ErrStale
		}
		if snap.State != StateLoaded {
			return ErrNotLoaded
		}
		if snap.Dialog.Submitting {
			return auction.ErrSubmissionInFlight
		}
		snap.Dialog.Open = false
		snap.Dialog.Error = ""
		snap.Dialog.Submitting = true
		token = SubmissionToken(s.view)
		return nil
	})
	return token, err
}

// FailSubmission reopens the dialog with message. It returns ErrStale when
// the view has moved on since BeginSubmission.
func (s *Store) FailSubmission(token SubmissionToken, message string) error {
	return s.update(func(snap *Snapshot) error {
		if uint64(token) != s.view {
			return ErrStale
		}
		snap.Dialog.Submitting = false
		snap.Dialog.Open = true
		snap.Dialog.Error = message
		return nil
	})
}

// CompleteSubmission clears the in-flight marker and reloads the auction.
// Both happen under one lock, so the pre-bid listing is never published
// without the marker. It returns ErrStale when the view has moved on since
// BeginSubmission, or when a newer load overtakes the reload.
func (s *Store) CompleteSubmission(ctx context.Context, token SubmissionToken) error {
	s.mu.Lock()
	if uint64(token) != s.view {
		s.mu.Unlock()
		return ErrStale
	}
	id := s.snap.AuctionID
	gen := s.startLoadLocked(id, false)
	notify := s.commitLocked()
	s.mu.Unlock()
	notify()

	return s.fetch(ctx, id, gen)
}

// Subscription is a registered change listener.
type Subscription struct {
	store *Store
	id    uint64
	once  sync.Once
}

// Unsubscribe stops further notifications. It is safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs, sub.id)
		sub.store.mu.Unlock()
	})
}

// Subscribe registers fn to receive a snapshot after every change.
// Listeners run on the goroutine that made the change, outside the store lock.
// Under concurrent changes they may observe snapshots out of order; compare Version.
func (s *Store) Subscribe(fn func(Snapshot)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	s.subs[s.nextSubID] = fn
	return &Subscription{store: s, id: s.nextSubID}
}

func (s *Store) update(fn func(*Snapshot) error) error {
	s.mu.Lock()
	next := s.snap
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap = next
	notify := s.commitLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// commitLocked bumps the version and returns a function that delivers the
// new snapshot to the current listeners. Call it after releasing the lock.
func (s *Store) commitLocked() func() {
	s.version++
	s.snap.Version = s.version
	snap := s.snap
	listeners := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	return func() {
		for _, fn := range listeners {
			fn(snap)
		}
	}
}
