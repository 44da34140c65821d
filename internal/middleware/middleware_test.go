package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRateLimiterPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", NewRateLimiter(2).Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if send("10.0.0.1") != http.StatusOK || send("10.0.0.1") != http.StatusOK {
		t.Fatal("burst should be allowed")
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other IPs have their own budget, got %d", code)
	}
}

func TestRateLimiterKeepsActiveIPs(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	first := rl.getLimiter("10.0.0.1")
	now = now.Add(6 * time.Minute)
	rl.getLimiter("10.0.0.1")
	now = now.Add(6 * time.Minute)

	wait, gone := rl.expire("10.0.0.1")
	if gone || wait != 4*time.Minute {
		t.Fatalf("active IP must be kept, got wait=%v gone=%v", wait, gone)
	}
	if rl.getLimiter("10.0.0.1") != first {
		t.Fatal("active IP must keep its bucket")
	}

	now = now.Add(10 * time.Minute)
	if _, gone := rl.expire("10.0.0.1"); !gone {
		t.Fatal("idle IP should be forgotten")
	}
	if rl.getLimiter("10.0.0.1") == first {
		t.Fatal("forgotten IP should get a fresh bucket")
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(generated); err != nil || w.Body.String() != generated {
		t.Fatalf("expected a generated uuid, got %q", generated)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != incoming {
		t.Fatal("incoming request id should be kept")
	}
}
