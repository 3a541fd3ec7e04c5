// Package bidding validates and submits bids for the auction on screen.
package bidding

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/floroz/gavel-client/internal/auction"
	"github.com/floroz/gavel-client/internal/backend"
	"github.com/floroz/gavel-client/internal/detail"
)

const genericSubmitFailure = "unable to submit your bid, please try again"

// BidPlacer sends a bid to the backend.
type BidPlacer interface {
	PlaceBid(ctx context.Context, id uuid.UUID, amount auction.Amount) (*auction.PlacedBid, error)
}

// SessionState reports whether the user is signed in.
type SessionState interface {
	SignedIn() bool
}

// Submitter runs the bid flow against a detail store.
type Submitter struct {
	placer  BidPlacer
	store   *detail.Store
	session SessionState
	logger  *slog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(placer BidPlacer, store *detail.Store, session SessionState, logger *slog.Logger) *Submitter {
	return &Submitter{
		placer:  placer,
		store:   store,
		session: session,
		logger:  logger,
	}
}

// Availability reports the bid affordance for the current view.
func (s *Submitter) Availability() Affordance {
	return Availability(s.store.Snapshot(), s.session.SignedIn(), s.store.Now())
}

// OpenDialog opens the bid entry when bidding is available.
func (s *Submitter) OpenDialog() error {
	if err := s.Availability().err(); err != nil {
		return err
	}
	return s.store.OpenBidDialog()
}

// Submit validates input and places it as a bid on the auction on screen.
//
// Validation failures and backend rejections leave the dialog open with the
// message. On success the dialog closes and the auction is refreshed before
// Submit returns. If that refresh fails the placed bid is returned together
// with the *auction.LoadError.
func (s *Submitter) Submit(ctx context.Context, input string) (*auction.PlacedBid, error) {
	snap := s.store.Snapshot()
	if err := Availability(snap, s.session.SignedIn(), s.store.Now()).err(); err != nil {
		return nil, err
	}

	s.store.SetBidAmount(input)
	amount, err := parseAndValidate(input, snap.Listing.MinimumNextBid())
	if err != nil {
		if rerr := s.store.RejectBid(snap.AuctionID, err.Error()); rerr != nil {
			s.logger.Debug("Dropping validation message for a closed view", "auction_id", snap.AuctionID)
		}
		return nil, err
	}

	token, err := s.store.BeginSubmission(snap.AuctionID)
	if err != nil {
		return nil, err
	}

	placed, err := s.placer.PlaceBid(ctx, snap.AuctionID, amount)
	if err != nil {
		subErr := toSubmissionError(err)
		if ferr := s.store.FailSubmission(token, subErr.Message); ferr != nil {
			s.logger.Debug("Dropping bid failure for a closed view", "auction_id", snap.AuctionID)
		}
		s.logger.Info("Bid rejected",
			"auction_id", snap.AuctionID,
			"amount", amount.String(),
			"status", subErr.StatusCode,
			"error", err,
		)
		return nil, subErr
	}

	s.logger.Info("Bid placed", "auction_id", snap.AuctionID, "bid_id", placed.ID, "amount", placed.Amount.String())

	if err := s.store.CompleteSubmission(ctx, token); err != nil {
		if errors.Is(err, detail.ErrStale) {
			s.logger.Debug("Skipping refresh for a closed view", "auction_id", snap.AuctionID)
			return placed, nil
		}
		return placed, err
	}
	return placed, nil
}

func parseAndValidate(input string, minimum auction.Amount) (auction.Amount, error) {
	value, err := ParseAmount(input)
	if err != nil {
		return 0, err
	}
	return Validate(value, minimum)
}

func toSubmissionError(err error) *auction.SubmissionError {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return &auction.SubmissionError{
			Message:    apiErr.Error(),
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	}
	return &auction.SubmissionError{Message: genericSubmitFailure, Err: err}
}
