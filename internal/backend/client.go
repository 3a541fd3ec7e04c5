// Package backend is the HTTP JSON client for the auction backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/floroz/gavel-client/internal/auction"
)

const (
	DefaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

var ErrMalformedResponse = errors.New("malformed response from auction backend")

// APIError is a non-2xx response. Message is the backend's own text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auction backend returned status %d", e.StatusCode)
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() (string, bool)
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	AccessToken string    `json:"accessToken" validate:"required"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type placeBidRequest struct {
	Amount auction.Amount `json:"amount" validate:"gt=0"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Client talks to the auction backend over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	validate   *validator.Validate
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource attaches a bearer token to every request when one is available.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		validate:   validator.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListAuctions fetches the home feed.
func (c *Client) ListAuctions(ctx context.Context) ([]auction.Summary, error) {
	var out []auction.Summary
	if err := c.do(ctx, http.MethodGet, "/auctions", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := c.validate.Struct(&out[i]); err != nil {
			return nil, fmt.Errorf("%w: auction %d: %v", ErrMalformedResponse, i, err)
		}
	}
	return out, nil
}

// GetAuction fetches the full detail of one auction.
func (c *Client) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Listing, error) {
	var out auction.Listing
	if err := c.do(ctx, http.MethodGet, "/auctions/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

// PlaceBid submits a bid. Non-2xx responses are returned as *APIError.
func (c *Client) PlaceBid(ctx context.Context, id uuid.UUID, amount auction.Amount) (*auction.PlacedBid, error) {
	req := placeBidRequest{Amount: amount}
	if err := c.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid bid request: %w", err)
	}

	var out auction.PlacedBid
	if err := c.do(ctx, http.MethodPost, "/auctions/"+id.String()+"/bids", req, &out); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req := loginRequest{Email: email, Password: password}
	if err := c.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}

	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
		apiErr.Message = eb.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
