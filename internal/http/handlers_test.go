package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medmanage/internal/domain"
	"medmanage/internal/metrics"
	"medmanage/internal/repository"
	"medmanage/internal/service"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	schema := repository.NewSchema(true)
	store := repository.NewMemoryStore(schema)
	ordersRepo := repository.NewMemoryOrders(store)
	m := metrics.New("medmanage-test", prometheus.NewRegistry())
	medicinesSvc := service.NewMedicineService(store)
	ordersSvc := service.NewOrderService(store, ordersRepo, schema, service.WithMetrics(m))
	dashboardSvc := service.NewDashboardService(store, ordersRepo)
	return NewServer(medicinesSvc, ordersSvc, dashboardSvc, Options{AllowOrigins: []string{"*"}, Metrics: m})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createMedicine(t *testing.T, s *Server, name string, price float64, stock int64) domain.Medicine {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/medicines", map[string]any{
		"name": name, "batch": "B1", "manufacturer": "ABC Pharma",
		"expiry": "2027-12-31", "stock": stock, "price": price,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create medicine %v: %s", w.Code, w.Body.String())
	}
	return decode[domain.Medicine](t, w)
}

func TestMedicineFlow(t *testing.T) {
	s := setupServer(t)
	// create
	m := createMedicine(t, s, "Aspirin", 10, 5)
	if m.ID.IsZero() || m.Name != "Aspirin" || m.Expiry.Year() != 2027 {
		t.Fatalf("unexpected medicine: %+v", m)
	}
	path := "/api/medicines/" + m.ID.Hex()

	// get
	w := doJSON(t, s, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}

	// update price only
	w = doJSON(t, s, http.MethodPut, path, map[string]any{"price": 12})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v: %s", w.Code, w.Body.String())
	}
	up := decode[domain.Medicine](t, w)
	if up.Price != 12 || up.Stock != 5 || up.Name != "Aspirin" {
		t.Fatalf("unexpected update: %+v", up)
	}

	// list
	w = doJSON(t, s, http.MethodGet, "/api/medicines?q=asp", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code %v", w.Code)
	}
	if list := decode[[]domain.Medicine](t, w); len(list) != 1 {
		t.Fatalf("expected 1 medicine, got %d", len(list))
	}

	// delete
	w = doJSON(t, s, http.MethodDelete, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete code %v", w.Code)
	}
	if msg := decode[messageResponse](t, w); msg.Message != "Medicine deleted successfully" {
		t.Fatalf("unexpected message %q", msg.Message)
	}
	w = doJSON(t, s, http.MethodGet, path, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", w.Code)
	}
}

func TestOrderFlow(t *testing.T) {
	s := setupServer(t)
	m := createMedicine(t, s, "Aspirin", 10, 5)

	// create order
	w := doJSON(t, s, http.MethodPost, "/api/orders", map[string]any{
		"customer": map[string]any{"name": "John", "phone": "555", "address": "Main St"},
		"items": []map[string]any{
			{"medicineId": m.ID.Hex(), "name": "Aspirin", "batch": "B1", "price": 10, "quantity": 3},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order %v: %s", w.Code, w.Body.String())
	}
	o := decode[domain.Order](t, w)
	if o.Status != domain.DefaultOrderStatus || o.Customer.Name != "John" || len(o.Items) != 1 {
		t.Fatalf("unexpected order: %+v", o)
	}

	// stock decremented
	w = doJSON(t, s, http.MethodGet, "/api/medicines/"+m.ID.Hex(), nil)
	if got := decode[domain.Medicine](t, w); got.Stock != 2 {
		t.Fatalf("stock expected 2, got %d", got.Stock)
	}

	// get order
	w = doJSON(t, s, http.MethodGet, "/api/orders/"+o.ID.Hex(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get order %v", w.Code)
	}

	// update status
	w = doJSON(t, s, http.MethodPut, "/api/orders/"+o.ID.Hex(), map[string]any{"status": "Delivered"})
	if w.Code != http.StatusOK {
		t.Fatalf("update order %v: %s", w.Code, w.Body.String())
	}
	if up := decode[domain.Order](t, w); up.Status != "Delivered" || len(up.Items) != 1 {
		t.Fatalf("unexpected update: %+v", up)
	}

	// dashboard
	w = doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard %v", w.Code)
	}
	d := decode[domain.Dashboard](t, w)
	if d.TotalMedicines != 1 || d.TodayOrders != 1 || d.TotalRevenue != 30 || len(d.RecentOrders) != 1 {
		t.Fatalf("unexpected dashboard: %+v", d)
	}

	// delete
	w = doJSON(t, s, http.MethodDelete, "/api/orders/"+o.ID.Hex(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete order %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/orders", nil)
	if list := decode[[]domain.Order](t, w); len(list) != 0 {
		t.Fatalf("expected no orders, got %d", len(list))
	}
}

func TestOrder_UnknownMedicineStillCreated(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"medicineId": primitive.NewObjectID().Hex(), "price": 5, "quantity": 1}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %v: %s", w.Code, w.Body.String())
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	s := setupServer(t)
	// missing required fields
	w := doJSON(t, s, http.MethodPost, "/api/medicines", map[string]any{"name": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	if msg := decode[messageResponse](t, w); !strings.Contains(msg.Message, "batch is required") {
		t.Fatalf("unexpected message %q", msg.Message)
	}

	// unparseable expiry
	w = doJSON(t, s, http.MethodPost, "/api/medicines", map[string]any{
		"name": "A", "batch": "B", "manufacturer": "M", "expiry": "next year", "stock": 1, "price": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad expiry, got %v", w.Code)
	}

	// malformed json
	req := httptest.NewRequest(http.MethodPost, "/api/medicines", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %v", rec.Code)
	}

	// invalid id
	w = doJSON(t, s, http.MethodGet, "/api/medicines/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodDelete, "/api/orders/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}

	// item quantity below one
	m := createMedicine(t, s, "A", 1, 1)
	w = doJSON(t, s, http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"medicineId": m.ID.Hex(), "price": 1, "quantity": 0}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
}

func TestHTTP_FieldTypeErrorsNameTheField(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/medicines", map[string]any{
		"name": "A", "batch": "B", "manufacturer": "M", "expiry": "2027-01-01", "stock": 2.5, "price": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	if msg := decode[messageResponse](t, w); !strings.Contains(msg.Message, "stock must be a whole number") {
		t.Fatalf("unexpected message %q", msg.Message)
	}

	m := createMedicine(t, s, "A", 1, 1)
	w = doJSON(t, s, http.MethodPut, "/api/medicines/"+m.ID.Hex(), map[string]any{"price": "cheap"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	if msg := decode[messageResponse](t, w); !strings.Contains(msg.Message, "price must be a number") {
		t.Fatalf("unexpected message %q", msg.Message)
	}
}

func TestHTTP_MalformedPriceFilter(t *testing.T) {
	s := setupServer(t)
	_ = createMedicine(t, s, "A", 1, 1)
	for _, q := range []string{"min_price=abc", "max_price=1O", "min_price=NaN"} {
		w := doJSON(t, s, http.MethodGet, "/api/medicines?"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %v", q, w.Code)
		}
	}
	w := doJSON(t, s, http.MethodGet, "/api/medicines?min_price=0.5&max_price=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %v", w.Code)
	}
	if list := decode[[]domain.Medicine](t, w); len(list) != 1 {
		t.Fatalf("expected 1 medicine, got %d", len(list))
	}
}

func TestHTTP_NotFound(t *testing.T) {
	s := setupServer(t)
	missing := primitive.NewObjectID().Hex()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/medicines/" + missing},
		{http.MethodDelete, "/api/medicines/" + missing},
		{http.MethodGet, "/api/orders/" + missing},
		{http.MethodDelete, "/api/orders/" + missing},
	} {
		w := doJSON(t, s, tc.method, tc.path, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %v", tc.method, tc.path, w.Code)
		}
	}
	w := doJSON(t, s, http.MethodPut, "/api/orders/"+missing, map[string]any{"status": "Paid"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
}

func TestHTTP_Ambient(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health %v", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("request id not echoed")
	}

	_ = createMedicine(t, s, "A", 1, 1)
	w = doJSON(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics %v", w.Code)
	}
	if !strings.Contains(w.Body.String(), `http_requests_total{method="POST",path="/api/medicines"`) {
		t.Fatalf("request counter missing from metrics output")
	}
}

func TestMapErrorToStatus(t *testing.T) {
	cases := map[error]int{
		repository.ErrInvalidID:   http.StatusBadRequest,
		repository.ErrValidation:  http.StatusBadRequest,
		repository.ErrNotFound:    http.StatusNotFound,
		repository.ErrUnavailable: http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := mapErrorToStatus(err); got != want {
			t.Fatalf("%v: got %d want %d", err, got, want)
		}
	}
}
