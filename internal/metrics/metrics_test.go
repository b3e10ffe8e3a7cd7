package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/:id", "204")); got != 2 {
		t.Fatalf("route counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unknown", "404")); got != 1 {
		t.Fatalf("unknown counter = %v, want 1", got)
	}
}

func TestInstancesDoNotShareState(t *testing.T) {
	a, b := New(), New()
	a.PostsSeen.Add(3)
	if got := testutil.ToFloat64(b.PostsSeen); got != 0 {
		t.Fatalf("second instance saw %v posts", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.RetainedPosts.Set(4)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "airshark_retained_posts 4") {
		t.Fatalf("retained gauge missing from output")
	}
}
