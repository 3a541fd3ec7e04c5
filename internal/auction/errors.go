package auction

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAuctionClosed      = errors.New("this auction is closed for bidding")
	ErrNotSignedIn        = errors.New("sign in to place a bid")
	ErrSubmissionInFlight = errors.New("a bid is already being submitted")
)

// LoadError reports that the detail fetch for an auction failed.
// Its message is deliberately opaque; the cause is available through Unwrap.
type LoadError struct {
	AuctionID uuid.UUID
	Err       error
}

func (e *LoadError) Error() string {
	return "unable to load auction details"
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ValidationError reports a bid amount rejected locally before any request is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// SubmissionError reports a bid the backend did not accept.
// Message is shown to the user verbatim.
type SubmissionError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
