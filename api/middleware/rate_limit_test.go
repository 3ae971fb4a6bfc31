package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

func TestRateLimit_UserKeyThrottles(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("payment_initiate", time.Minute, 2, 100)

	var handled int64
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&handled, 1)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{}`))
		req.RemoteAddr = "1.2.3.4:5678"
		req = req.WithContext(WithUserID(req.Context(), "user-42"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}

	if got := atomic.LoadInt64(&handled); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for key := range store.counts {
		if !strings.HasPrefix(key, "rl:user:payment_initiate:") {
			t.Fatalf("authenticated caller touched non-user key %q", key)
		}
	}
}

func TestRateLimit_GuestFallsBackToIP(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("payment_initiate", time.Minute, 2, 1)

	var handled int64
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&handled, 1)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{}`))
		req.RemoteAddr = "5.6.7.8:1234"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}

	if got := atomic.LoadInt64(&handled); got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for key := range store.counts {
		if !strings.HasPrefix(key, "rl:ip:payment_initiate:") {
			t.Fatalf("guest caller touched non-ip key %q", key)
		}
	}
}

func TestRateLimit_ZeroConfigPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("payment_initiate", 0, 0, 0)

	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{}`))
		req.RemoteAddr = "9.9.9.9:1111"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy wrote %d keys", len(store.counts))
	}
}
