package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/metrics"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/store"
)

// ErrMissingFields is returned when signup input is incomplete.
var ErrMissingFields = errors.New("auth: username, email and password are required")

// Service creates users and checks credentials.
type Service struct {
	store           store.Store
	authn           Authenticator
	tokens          *Tokens
	startingBalance decimal.Decimal
}

// NewService creates an auth service. New users start with startingBalance.
func NewService(st store.Store, authn Authenticator, tokens *Tokens, startingBalance decimal.Decimal) *Service {
	return &Service{
		store:           st,
		authn:           authn,
		tokens:          tokens,
		startingBalance: startingBalance,
	}
}

// Register creates a user with the starting wallet balance.
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.authn.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		WalletBalance: s.startingBalance,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	metrics.UsersCreated.Inc()
	slog.Info("user created", "id", user.ID, "username", user.Username)
	return user, nil
}

// LoginResult is returned on successful login.
type LoginResult struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// Login checks credentials for a username or email.
func (s *Service) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := s.authn.Verify(user.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{
		UserID:      user.ID,
		Username:    user.Username,
		Message:     "Login successful",
		AccessToken: token,
	}, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}
