package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/papertrade/market-engine/internal/auth"
	"github.com/papertrade/market-engine/internal/config"
	"github.com/papertrade/market-engine/internal/jitter"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/pricing"
	"github.com/papertrade/market-engine/internal/store"
	"github.com/papertrade/market-engine/internal/trade"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServerWithHub(t, nil)
}

func newTestServerWithHub(t *testing.T, hub *trade.WSHub) http.Handler {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	st := store.NewMemoryStore()
	tokens := auth.NewTokens(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	return newRouter(cfg, routes{
		auth:   auth.NewService(st, auth.NewBcryptAuthenticator(bcrypt.MinCost), tokens, cfg.StartingBalance),
		tokens: tokens,
		trade:  trade.NewService(st, pricing.NewEngine(jitter.Seeded(1)), jitter.Seeded(2), hub),
		ws:     hub,
	})
}

func call(t *testing.T, h http.Handler, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return w.Code
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	var body map[string]string
	if code := call(t, h, "GET", "/health", "", nil, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/v1/trade", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected origin *, got %q", got)
	}
}

func TestSignupTradeFlow(t *testing.T) {
	h := newTestServer(t)

	var user model.User
	code := call(t, h, "POST", "/api/v1/users", "", auth.CreateUserRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret",
	}, &user)
	if code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", code)
	}
	if !user.WalletBalance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected starting balance 10000, got %s", user.WalletBalance)
	}

	var login auth.LoginResult
	if code := call(t, h, "POST", "/api/v1/login", "", auth.LoginRequest{Username: "alice@example.com", Password: "secret"}, &login); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}

	var res trade.Result
	if code := call(t, h, "POST", "/api/v1/trade", "", trade.TradeRequest{UserID: user.ID, Ticker: "AAPL", Quantity: 10}, &res); code != http.StatusOK {
		t.Fatalf("trade: expected 200, got %d", code)
	}
	if !res.NewBalance.GreaterThan(decimal.NewFromInt(8000)) {
		t.Errorf("expected balance above 8000, got %s", res.NewBalance)
	}

	var positions []model.Position
	call(t, h, "GET", "/api/v1/portfolio/"+user.ID, "", nil, &positions)
	if len(positions) != 1 || positions[0].Ticker != "AAPL" || positions[0].Quantity != 10 {
		t.Errorf("expected 10 AAPL, got %+v", positions)
	}

	var me model.User
	if code := call(t, h, "GET", "/api/v1/me", login.AccessToken, nil, &me); code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", code)
	}
	if !me.WalletBalance.Equal(res.NewBalance) {
		t.Errorf("expected wallet %s, got %s", res.NewBalance, me.WalletBalance)
	}

	var history []model.TradeHistoryItem
	call(t, h, "GET", "/api/v1/trades/"+user.ID+"/history?limit=5", "", nil, &history)
	if len(history) != 1 || history[0].Timestamp.After(time.Now()) {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestWebSocketThroughRouter(t *testing.T) {
	hub := trade.NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	h := newTestServerWithHub(t, hub)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var user model.User
	if code := call(t, h, "POST", "/api/v1/users", "", auth.CreateUserRequest{
		Username: "bob", Email: "bob@example.com", Password: "secret",
	}, &user); code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", code)
	}
	if code := call(t, h, "POST", "/api/v1/trade", "", trade.TradeRequest{UserID: user.ID, Ticker: "msft", Quantity: 3}, nil); code != http.StatusOK {
		t.Fatalf("trade: expected 200, got %d", code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg trade.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "trade_executed" || msg.Ticker != "MSFT" || msg.Quantity != 3 {
		t.Errorf("unexpected message %+v", msg)
	}
}
