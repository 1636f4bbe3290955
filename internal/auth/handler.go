package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/papertrade/market-engine/internal/httputil"
	"github.com/papertrade/market-engine/internal/store"
)

// CreateUserRequest is the JSON body for POST /users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /login. Username may also be an
// email address.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleCreateUser handles POST /api/v1/users
func (s *Service) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// HandleLogin handles POST /api/v1/login
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleGetUser handles GET /api/v1/users/{userID}
func (s *Service) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleMe handles GET /api/v1/me for the bearer of the session token.
func (s *Service) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		httputil.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := s.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

type ctxKey string

const userIDKey ctxKey = "user_id"

// WithAuth rejects requests without a valid bearer token and stores the
// token subject in the request context.
func WithAuth(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				httputil.WriteError(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			userID, err := tokens.Parse(parts[1])
			if err != nil {
				httputil.WriteError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID returns the authenticated user ID stored by WithAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingFields):
		httputil.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnauthorized):
		httputil.WriteError(w, "Invalid username/email or password", http.StatusUnauthorized)
	case errors.Is(err, store.ErrConflict):
		httputil.WriteError(w, "username or email already registered", http.StatusConflict)
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, "user not found", http.StatusNotFound)
	default:
		slog.Error("auth request failed", "err", err)
		httputil.WriteError(w, "internal error", http.StatusInternalServerError)
	}
}
