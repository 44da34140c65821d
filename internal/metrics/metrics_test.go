package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"slotbooking/backend/internal/service"
)

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/slots/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Handler())

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/slots/%d", i+1), nil))
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/slots/:id", "200")); got != 2 {
		t.Fatalf("expected 2 requests on the route template, got %v", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics endpoint missing counters: %d", w.Code)
	}
}

func TestPublishCountsBookingEvents(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.Publish(ctx, service.BookingEvent{Type: service.EventBookingCreated})
	m.Publish(ctx, service.BookingEvent{Type: service.EventBookingCreated})
	m.Publish(ctx, service.BookingEvent{Type: service.EventBookingCancelled})

	if got := testutil.ToFloat64(m.bookingEvents.WithLabelValues(service.EventBookingCreated)); got != 2 {
		t.Fatalf("created = %v", got)
	}
	if got := testutil.ToFloat64(m.bookingEvents.WithLabelValues(service.EventBookingCancelled)); got != 1 {
		t.Fatalf("cancelled = %v", got)
	}
}
