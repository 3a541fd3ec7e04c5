package fakebackend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/floroz/gavel-client/internal/auction"
	"github.com/floroz/gavel-client/pkg/auth"
)

const maxRequestBody = 1 << 20

type placeBidRequest struct {
	Amount *float64 `json:"amount" validate:"required"`
}

type placeBidResponse struct {
	ID     uuid.UUID      `json:"id"`
	Amount auction.Amount `json:"amount"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Handler exposes a Service over HTTP.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRouter builds the backend's routes. Placing a bid requires a bearer
// token accepted by signer.
func NewRouter(svc *Service, signer *auth.Signer, logger *slog.Logger) http.Handler {
	h := &Handler{svc: svc, validate: validator.New(), logger: logger}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet)
	r.HandleFunc("/auctions/{id}", h.GetAuction).Methods(http.MethodGet)
	r.Handle("/auctions/{id}/bids", auth.RequireAuth(signer)(http.HandlerFunc(h.PlaceBid))).Methods(http.MethodPost)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListAuctions(r.Context()))
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}
	l, err := h.svc.GetAuction(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	claims, ok := auth.GetUserClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "missing credentials"})
		return
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "invalid token subject"})
		return
	}

	var req placeBidRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := auction.AmountFromFloat(*req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	bid, err := h.svc.PlaceBid(r.Context(), PlaceBidCommand{
		AuctionID: id,
		UserID:    userID,
		Amount:    amount,
		Bidder:    &auction.BidderInfo{Name: claims.FullName, Email: claims.Email},
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placeBidResponse{ID: bid.ID, Amount: bid.Amount})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExpiry})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validationErr *auction.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.Is(err, ErrAuctionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrBidTooLow), errors.Is(err, ErrAuctionEnded):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidBidAmount), errors.Is(err, ErrIncrementTooHigh):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrSellerCannotBid):
		status = http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStartPrice):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Message: message})
}

func auctionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: ErrAuctionNotFound.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
