package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	mw "github.com/verimobi/phone-verify/internal/http/middleware"
)

func newLimitedHandler(t *testing.T, requests int, window time.Duration) (http.Handler, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	limiter := mw.NewRateLimiter(rdb, mw.RateLimitConfig{
		Requests: requests,
		Window:   window,
		KeyFunc:  mw.RequestCodeKeyFunc,
	})

	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	return handler, srv
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/request-code", nil)
	req.RemoteAddr = ip + ":54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	handler, _ := newLimitedHandler(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if rec := doRequest(handler, "203.0.113.5"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	handler, _ := newLimitedHandler(t, 2, time.Minute)

	doRequest(handler, "203.0.113.5")
	doRequest(handler, "203.0.113.5")

	if rec := doRequest(handler, "203.0.113.5"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}

	// A different IP has its own window.
	if rec := doRequest(handler, "203.0.113.6"); rec.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	handler, srv := newLimitedHandler(t, 1, time.Minute)

	doRequest(handler, "203.0.113.5")
	if rec := doRequest(handler, "203.0.113.5"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	srv.FastForward(2 * time.Minute)

	if rec := doRequest(handler, "203.0.113.5"); rec.Code != http.StatusOK {
		t.Errorf("after window: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	srv.Close()

	limiter := mw.NewRateLimiter(rdb, mw.RateLimitConfig{
		Requests: 1,
		Window:   time.Minute,
		KeyFunc:  mw.RequestCodeKeyFunc,
	})

	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if rec := doRequest(handler, "203.0.113.5"); rec.Code != http.StatusOK {
			t.Fatalf("redis down: status = %d, want 200 (fail open)", rec.Code)
		}
	}
}

func TestRateLimiterSkipFunc(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	limiter := mw.NewRateLimiter(rdb, mw.RateLimitConfig{
		Requests: 1,
		Window:   time.Minute,
		KeyFunc:  mw.RequestCodeKeyFunc,
		SkipFunc: func(r *http.Request) bool { return r.Header.Get("X-Internal") == "1" },
	})

	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/request-code", nil)
		req.RemoteAddr = "203.0.113.5:54321"
		req.Header.Set("X-Internal", "1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("skipped request: status = %d, want 200", rec.Code)
		}
	}
}
