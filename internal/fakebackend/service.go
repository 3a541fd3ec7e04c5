// Package fakebackend is an in-memory auction house serving the backend HTTP
// contract. It backs local development and end-to-end tests of the client.
package fakebackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/gavel-client/internal/auction"
	"github.com/floroz/gavel-client/pkg/auth"
	"github.com/floroz/gavel-client/pkg/events"
)

// Validation errors
var (
	ErrAuctionNotFound   = fmt.Errorf("auction not found")
	ErrBidTooLow         = fmt.Errorf("bid amount must be higher than the current price")
	ErrAuctionEnded      = fmt.Errorf("auction has ended")
	ErrInvalidBidAmount  = fmt.Errorf("bid amount must be positive")
	ErrSellerCannotBid   = fmt.Errorf("seller cannot bid on their own item")
	ErrIncrementTooHigh  = fmt.Errorf("bid raises the price by more than the maximum increment")
	ErrInvalidStartPrice = fmt.Errorf("start price must be greater than 0")
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
)

// PlaceBidCommand represents the command to place a bid
type PlaceBidCommand struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
	Amount    auction.Amount
	Bidder    *auction.BidderInfo
}

// BidEventPublisher announces accepted bids.
type BidEventPublisher interface {
	PublishBidPlaced(ctx context.Context, event events.BidPlaced) error
}

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
}

// validateBidAmount checks the amount against the listing's prices
func validateBidAmount(amount, startingPrice, currentPrice auction.Amount) error {
	if amount <= 0 {
		return ErrInvalidBidAmount
	}
	if amount <= currentPrice || amount < startingPrice {
		return fmt.Errorf("%w (current price %s)", ErrBidTooLow, auction.MaxAmount(startingPrice, currentPrice))
	}
	return nil
}

// validateIncrement checks that a bid does not jump further than maxIncrement
func validateIncrement(amount, currentPrice, maxIncrement auction.Amount) error {
	if maxIncrement > 0 && amount-currentPrice > maxIncrement {
		return fmt.Errorf("%w (at most %s)", ErrIncrementTooHigh, currentPrice+maxIncrement)
	}
	return nil
}

// validateAuctionOpen checks the listing's status and time window
func validateAuctionOpen(l *auction.Listing, now time.Time) error {
	if l.EffectiveStatus(now) != auction.StatusOpen {
		return ErrAuctionEnded
	}
	return nil
}

// Service holds auctions and users in memory.
type Service struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*auction.Listing
	order    []uuid.UUID
	users    map[string]*User

	signer    *auth.Signer
	publisher BidEventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes bid.placed after every accepted bid.
func WithPublisher(p BidEventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates an empty auction house. signer issues login tokens.
func NewService(signer *auth.Signer, opts ...Option) *Service {
	s := &Service{
		auctions: make(map[uuid.UUID]*auction.Listing),
		users:    make(map[string]*User),
		signer:   signer,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAuction stores a new listing. The current price starts at the starting price.
func (s *Service) CreateAuction(_ context.Context, l auction.Listing) (*auction.Listing, error) {
	if l.StartingPrice <= 0 {
		return nil, ErrInvalidStartPrice
	}
	if strings.TrimSpace(l.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	created := l.Clone()
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	if created.Status == "" {
		created.Status = auction.StatusOpen
	}
	created.CurrentPrice = auction.MaxAmount(created.StartingPrice, created.CurrentPrice)
	for i := range created.Media {
		if created.Media[i].ID == uuid.Nil {
			created.Media[i].ID = uuid.New()
		}
	}
	if created.Media == nil {
		created.Media = []auction.Media{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.auctions[created.ID]; exists {
		return nil, fmt.Errorf("%w: auction %s already exists", ErrInvalidInput, created.ID)
	}
	s.auctions[created.ID] = created
	s.order = append(s.order, created.ID)
	return created.Clone(), nil
}

// ListAuctions returns summaries in creation order.
func (s *Service) ListAuctions(_ context.Context) []auction.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auction.Summary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.auctions[id].Summary())
	}
	return out
}

// GetAuction returns a copy of the full listing.
func (s *Service) GetAuction(_ context.Context, id uuid.UUID) (*auction.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.auctions[id]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return l.Clone(), nil
}

// CloseAuction marks a listing closed.
func (s *Service) CloseAuction(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.auctions[id]
	if !ok {
		return ErrAuctionNotFound
	}
	l.Status = auction.StatusClosed
	return nil
}

// PlaceBid validates and records a bid, then publishes bid.placed.
// Publishing is best effort; a failure is logged and the bid stands.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*auction.Bid, error) {
	now := s.now()

	s.mu.Lock()
	l, ok := s.auctions[cmd.AuctionID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrAuctionNotFound
	}

	if err := s.checkBid(l, cmd, now); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	bid := auction.Bid{
		ID:        uuid.New(),
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		CreatedAt: now.UTC(),
	}
	if cmd.Bidder != nil {
		b := *cmd.Bidder
		bid.User = &b
	}
	l.Bids = append(l.Bids, bid)
	l.CurrentPrice = cmd.Amount
	s.mu.Unlock()

	s.logger.Info("Bid accepted", "auction_id", cmd.AuctionID, "bid_id", bid.ID, "amount", bid.Amount.String())

	if s.publisher != nil {
		event := events.BidPlaced{
			BidID:     bid.ID,
			ItemID:    cmd.AuctionID,
			UserID:    cmd.UserID,
			Amount:    int64(bid.Amount),
			Timestamp: bid.CreatedAt,
		}
		if err := s.publisher.PublishBidPlaced(ctx, event); err != nil {
			s.logger.Error("Failed to publish bid event", "bid_id", bid.ID, "error", err)
		}
	}

	return &bid, nil
}

func (s *Service) checkBid(l *auction.Listing, cmd PlaceBidCommand, now time.Time) error {
	if l.SellerID != uuid.Nil && l.SellerID == cmd.UserID {
		return ErrSellerCannotBid
	}
	if err := validateAuctionOpen(l, now); err != nil {
		return err
	}
	if err := validateBidAmount(cmd.Amount, l.StartingPrice, l.CurrentPrice); err != nil {
		return err
	}
	return validateIncrement(cmd.Amount, l.CurrentPrice, l.MaxIncrement)
}

// Register creates an account with an argon2id password hash.
func (s *Service) Register(_ context.Context, email, password, fullName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: email and a password of at least 8 characters are required", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return nil, ErrUserAlreadyExists
	}
	user := &User{ID: uuid.New(), Email: email, FullName: fullName, PasswordHash: hash}
	s.users[email] = user
	u := *user
	return &u, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(_ context.Context, email, password string) (*auth.TokenPair, error) {
	s.mu.RLock()
	user, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.signer.GenerateTokens(user.ID, user.Email, user.FullName, []string{"bids:write"})
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return pair, nil
}
