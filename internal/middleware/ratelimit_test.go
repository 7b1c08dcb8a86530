package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/weeklynews/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRequest(method, path, remoteAddr string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     2,
		GeneralBurst:    5,
		WriteRate:       1,
		WriteBurst:      10,
		CleanupInterval: time.Minute,
	}, discardLogger())
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.1:1234"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfterHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     0.5,
		GeneralBurst:    2,
		WriteRate:       1,
		WriteBurst:      1,
		CleanupInterval: time.Minute,
	}, logger)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.2:1234"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.2:1234"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode 429 body: %v", err)
	}
	if body.Code != model.ErrCodeRateLimitExceeded {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimitExceeded)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	if entry["client_ip"] != "192.0.2.2" {
		t.Errorf("client_ip = %q, want %q", entry["client_ip"], "192.0.2.2")
	}
	if entry["limit_type"] != "general" {
		t.Errorf("limit_type = %q, want %q", entry["limit_type"], "general")
	}
}

func TestRateLimitMiddleware_IsolatesClientIPs(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		WriteRate:       1,
		WriteBurst:      1,
		CleanupInterval: time.Minute,
	}, discardLogger())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.3:1000"))
	if w.Code != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", w.Code)
	}

	// 同一IPは別ポートでも同じクライアントとして扱う
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.3:2000"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP: status = %d, want 429", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.4:1000"))
	if w.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", w.Code)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

func TestWriteRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    100,
		WriteRate:       1,
		WriteBurst:      1,
		CleanupInterval: time.Minute,
	}, discardLogger())
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())

	w := httptest.NewRecorder()
	write.ServeHTTP(w, newTestRequest(http.MethodPost, "/api/favourites/toggle", "192.0.2.5:1"))
	if w.Code != http.StatusOK {
		t.Fatalf("first write: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	write.ServeHTTP(w, newTestRequest(http.MethodPost, "/api/favourites/toggle", "192.0.2.5:1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second write: status = %d, want 429", w.Code)
	}

	w = httptest.NewRecorder()
	general.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/week", "192.0.2.5:1"))
	if w.Code != http.StatusOK {
		t.Errorf("general after write limit: status = %d, want 200", w.Code)
	}

	if rl.WriteLimiterCount() != 1 || rl.GeneralLimiterCount() != 1 {
		t.Errorf("counts = (general %d, write %d), want (1, 1)", rl.GeneralLimiterCount(), rl.WriteLimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		WriteRate:       1,
		WriteBurst:      1,
		CleanupInterval: time.Hour,
	}, discardLogger())
	defer rl.Stop()

	rl.general.get("192.0.2.6", time.Now().Add(-3*time.Hour))
	rl.general.get("192.0.2.7", time.Now())
	rl.write.get("192.0.2.6", time.Now().Add(-3*time.Hour))

	rl.cleanup(time.Now())

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Errorf("GeneralLimiterCount = %d, want 1", got)
	}
	if got := rl.WriteLimiterCount(); got != 0 {
		t.Errorf("WriteLimiterCount = %d, want 0", got)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(), discardLogger())
	rl.Stop()
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:8080", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		req := newTestRequest(http.MethodGet, "/", tt.remoteAddr)
		if got := ClientIP(req); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2 {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.WriteRate != 0.5 {
		t.Errorf("WriteRate = %v, want 0.5", cfg.WriteRate)
	}
	if cfg.WriteBurst != 30 {
		t.Errorf("WriteBurst = %d, want 30", cfg.WriteBurst)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}
