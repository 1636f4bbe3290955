package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/papertrade/market-engine/internal/auth"
	"github.com/papertrade/market-engine/internal/config"
	"github.com/papertrade/market-engine/internal/metrics"
	"github.com/papertrade/market-engine/internal/trade"
)

type routes struct {
	auth   *auth.Service
	tokens *auth.Tokens
	trade  *trade.Service
	ws     *trade.WSHub
}

func newRouter(cfg config.Config, h routes) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"papertrade"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time trade updates. Outside the
		// timeout group: the connection is long-lived.
		if h.ws != nil {
			r.Get("/ws", h.ws.HandleWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Accounts.
			r.Post("/users", h.auth.HandleCreateUser)
			r.Post("/login", h.auth.HandleLogin)
			r.Get("/users/{userID}", h.auth.HandleGetUser)
			r.With(auth.WithAuth(h.tokens)).Get("/me", h.auth.HandleMe)

			// Trade execution.
			r.Post("/trade", h.trade.HandleTrade)

			// Portfolio queries.
			r.Get("/portfolio/{userID}", h.trade.HandlePortfolio)
			r.Get("/portfolio/{userID}/summary", h.trade.HandleSummary)
			r.Get("/portfolio/{userID}/risk-metrics", h.trade.HandleRiskMetrics)
			r.Get("/portfolio/{userID}/allocation", h.trade.HandleAllocation)
			r.Get("/portfolio/{userID}/sectors", h.trade.HandleSectors)
			r.Get("/trades/{userID}/history", h.trade.HandleHistory)

			// Market data.
			r.Get("/market/prices", h.trade.HandleMarketPrices)
		})
	})

	return r
}
