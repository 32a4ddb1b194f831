package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("svc", prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/items/1", "/items/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("svc", "GET", "/items/:id", "200")); got != 2 {
		t.Fatalf("expected 2 matched requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("svc", "GET", "unmatched", "404")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
	if got := testutil.ToFloat64(m.statusCategory.WithLabelValues("svc", "4xx", "GET", "unmatched")); got != 1 {
		t.Fatalf("expected 4xx category, got %v", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New("svc", prometheus.NewRegistry())
	m.OrderCreated()
	m.OrderCreated()
	m.StockAdjustmentFailed()
	if got := testutil.ToFloat64(m.ordersCreated); got != 2 {
		t.Fatalf("orders created %v", got)
	}
	if got := testutil.ToFloat64(m.stockAdjustFail); got != 1 {
		t.Fatalf("stock failures %v", got)
	}

	var none *Metrics
	none.OrderCreated()
	none.StockAdjustmentFailed()
}

func TestHandler_Exposition(t *testing.T) {
	m := New("svc", prometheus.NewRegistry())
	m.OrderCreated()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `orders_created_total{service="svc"} 1`) {
		t.Fatalf("counter missing:\n%s", w.Body.String())
	}
}

func TestCategory(t *testing.T) {
	for status, want := range map[int]string{200: "2xx", 201: "2xx", 302: "", 404: "4xx", 503: "5xx"} {
		if got := category(status); got != want {
			t.Fatalf("%d: got %q want %q", status, got, want)
		}
	}
}
