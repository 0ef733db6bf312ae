package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/cleaning-ops/internal/events"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns a uuid request id", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var seenID string
		var hadLogger bool
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = RequestIDFromContext(r.Context())
			hadLogger = LoggerFromContext(r.Context()) != nil
			w.WriteHeader(http.StatusAccepted)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs", nil))

		if _, err := uuid.Parse(seenID); err != nil {
			t.Fatalf("expected uuid request id, got %q", seenID)
		}
		if !hadLogger {
			t.Fatalf("expected request scoped logger in context")
		}
		if rr.Header().Get(RequestIDHeader) != seenID {
			t.Fatalf("expected response header %q, got %q", seenID, rr.Header().Get(RequestIDHeader))
		}

		var completed map[string]any
		scanner := bufio.NewScanner(&buf)
		for scanner.Scan() {
			var entry map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
				t.Fatalf("decode log line: %v", err)
			}
			if entry["msg"] == "request completed" {
				completed = entry
			}
		}
		if completed == nil {
			t.Fatalf("expected a request completed log line, got %s", buf.String())
		}
		if completed["status"] != float64(http.StatusAccepted) || completed["request_id"] != seenID || completed["path"] != "/jobs" {
			t.Fatalf("unexpected log attributes: %v", completed)
		}
	})

	t.Run("reuses an incoming request id", func(t *testing.T) {
		t.Parallel()
		var seenID string
		handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = RequestIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seenID != "abc-123" {
			t.Fatalf("expected incoming id, got %q", seenID)
		}
	})
}

func TestRateLimitDisabled(t *testing.T) {
	t.Parallel()

	handler := RateLimit(RateLimitConfig{}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/bookings", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rr.Code)
		}
	}
}

func TestRateLimitRefillsOverTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2, Now: clock}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := send(); rr.Code != http.StatusOK {
			t.Fatalf("burst request %d: expected 200, got %d", i, rr.Code)
		}
	}
	rr := send()
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	if body := decodeBody[errorResponse](t, rr); body.Error == "" {
		t.Fatalf("expected error body")
	}
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Now: func() time.Time { return now }}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	passed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusCreated {
			passed++
		}
	}
	if passed != 1 {
		t.Fatalf("expected one request through with a rotating X-Forwarded-For, got %d", passed)
	}
}

func TestRateLimitTrustedProxyUsesForwardedClient(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	cfg := RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		TrustedProxies:    []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
		Now:               func() time.Time { return now },
	}
	handler := RateLimit(cfg, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.RemoteAddr = "10.0.0.2:40000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.7"); code != http.StatusCreated {
		t.Fatalf("expected first client through, got %d", code)
	}
	if code := send("203.0.113.8"); code != http.StatusCreated {
		t.Fatalf("expected a second client behind the proxy through, got %d", code)
	}
	// A spoofed leftmost entry does not hide the hop the proxy appended.
	if code := send("192.0.2.99, 203.0.113.7, 10.0.0.3"); code != http.StatusTooManyRequests {
		t.Fatalf("expected the repeat client to be limited, got %d", code)
	}
}

func TestClientLimitersForgetIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, TTL: time.Minute, Now: func() time.Time { return now }})

	if !limiters.allow("a") || !limiters.allow("b") {
		t.Fatalf("expected first requests through")
	}
	now = now.Add(40 * time.Second)
	if limiters.allow("a") {
		t.Fatalf("expected a to still be limited")
	}

	// b has been idle past the ttl; a was seen 40s ago and is kept.
	now = now.Add(40 * time.Second)
	if !limiters.allow("c") {
		t.Fatalf("expected new client through")
	}
	if got := limiters.len(); got != 2 {
		t.Fatalf("expected idle client swept leaving 2, got %d", got)
	}
	if limiters.allow("a") {
		t.Fatalf("expected a bucket to survive while active")
	}
}

func TestEventsStream(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	server := httptest.NewServer(NewRouter(RouterConfig{Events: NewEventsHandler(bus, time.Minute, discardLogger())}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": connected") {
		t.Fatalf("expected connected comment, got %q (%v)", line, err)
	}

	occurred := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	bus.Publish(events.JobsChanged{Kind: events.KindRescheduled, JobIDs: []string{"job-1"}, OccurredAt: occurred})

	var eventLine, dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}

	if eventLine != EventName {
		t.Fatalf("expected event %q, got %q", EventName, eventLine)
	}
	var got events.JobsChanged
	if err := json.Unmarshal([]byte(dataLine), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.Kind != events.KindRescheduled || len(got.JobIDs) != 1 || got.JobIDs[0] != "job-1" || !got.OccurredAt.Equal(occurred) {
		t.Fatalf("unexpected event: %+v", got)
	}
}
