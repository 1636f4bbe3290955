package trade

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/papertrade/market-engine/internal/httputil"
	"github.com/papertrade/market-engine/internal/store"
)

// TradeRequest is the JSON body for POST /trade.
type TradeRequest struct {
	UserID   string `json:"user_id"`
	Ticker   string `json:"ticker"`
	Quantity int64  `json:"quantity"` // positive = buy, negative = sell
}

// HandleTrade handles POST /api/v1/trade
func (s *Service) HandleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	res, err := s.Trade(r.Context(), req.UserID, req.Ticker, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandlePortfolio handles GET /api/v1/portfolio/{userID}
func (s *Service) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := s.Portfolio(r.Context(), chi.URLParam(r, "userID"))
	respond(w, positions, err)
}

// HandleSummary handles GET /api/v1/portfolio/{userID}/summary
func (s *Service) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Summary(r.Context(), chi.URLParam(r, "userID"))
	respond(w, summary, err)
}

// HandleRiskMetrics handles GET /api/v1/portfolio/{userID}/risk-metrics
func (s *Service) HandleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.RiskMetrics(r.Context(), chi.URLParam(r, "userID"))
	respond(w, m, err)
}

// HandleAllocation handles GET /api/v1/portfolio/{userID}/allocation
func (s *Service) HandleAllocation(w http.ResponseWriter, r *http.Request) {
	items, err := s.Allocation(r.Context(), chi.URLParam(r, "userID"))
	respond(w, items, err)
}

// HandleSectors handles GET /api/v1/portfolio/{userID}/sectors
func (s *Service) HandleSectors(w http.ResponseWriter, r *http.Request) {
	items, err := s.Sectors(r.Context(), chi.URLParam(r, "userID"))
	respond(w, items, err)
}

// HandleHistory handles GET /api/v1/trades/{userID}/history?limit=N
func (s *Service) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := s.History(r.Context(), chi.URLParam(r, "userID"), limit)
	respond(w, items, err)
}

// HandleMarketPrices handles GET /api/v1/market/prices
func (s *Service) HandleMarketPrices(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.MarketPrices())
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// writeServiceError maps domain errors to HTTP statuses. Validation
// failures carry their message to the caller; anything else is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, "user not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidTicker),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientShares):
		httputil.WriteError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("trade request failed", "err", err)
		httputil.WriteError(w, "internal error", http.StatusInternalServerError)
	}
}
