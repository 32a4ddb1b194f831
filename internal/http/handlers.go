package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"medmanage/internal/domain"
	"medmanage/internal/logger"
	"medmanage/internal/metrics"
	"medmanage/internal/repository"
	"medmanage/internal/service"
)

// Options configures the ambient middleware of the server.
type Options struct {
	AllowOrigins []string
	Metrics      *metrics.Metrics
}

type Server struct {
	engine    *gin.Engine
	medicines *service.MedicineService
	orders    *service.OrderService
	dashboard *service.DashboardService
	metrics   *metrics.Metrics
}

func NewServer(medicines *service.MedicineService, orders *service.OrderService, dashboard *service.DashboardService, opts Options) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), logger.Middleware())
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(corsMiddleware(opts.AllowOrigins))

	s := &Server{engine: r, medicines: medicines, orders: orders, dashboard: dashboard, metrics: opts.Metrics}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = append(cfg.AllowHeaders, requestIDHeader)
	cfg.ExposeHeaders = []string{requestIDHeader}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/health", s.health)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	{
		medicines := api.Group("/medicines")
		medicines.GET("", s.listMedicines)
		medicines.POST("", s.createMedicine)
		medicines.GET(":id", s.getMedicine)
		medicines.PUT(":id", s.updateMedicine)
		medicines.DELETE(":id", s.deleteMedicine)

		orders := api.Group("/orders")
		orders.GET("", s.listOrders)
		orders.POST("", s.createOrder)
		orders.GET(":id", s.getOrder)
		orders.PUT(":id", s.updateOrder)
		orders.DELETE(":id", s.deleteOrder)

		api.GET("/dashboard", s.getDashboard)
	}
}

var errInvalidJSON = fmt.Errorf("%w: invalid json", repository.ErrValidation)

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name": "MedManage Backend Server",
		"endpoints": []string{
			"GET /api/medicines - List all medicines",
			"POST /api/medicines - Add new medicine",
			"GET /api/orders - List all orders",
			"POST /api/orders - Create new order",
			"GET /api/dashboard - Dashboard totals",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Medicine handlers
type medicineReq struct {
	Name         *string  `json:"name"`
	Batch        *string  `json:"batch"`
	Manufacturer *string  `json:"manufacturer"`
	Expiry       *string  `json:"expiry" example:"2025-12-31"`
	Stock        *int64   `json:"stock"`
	Price        *float64 `json:"price"`
}

func (r medicineReq) patch() (domain.MedicinePatch, error) {
	p := domain.MedicinePatch{
		Name:         r.Name,
		Batch:        r.Batch,
		Manufacturer: r.Manufacturer,
		Stock:        r.Stock,
		Price:        r.Price,
	}
	if r.Expiry != nil {
		t, err := parseDate(*r.Expiry)
		if err != nil {
			return p, err
		}
		p.Expiry = &t
	}
	return p, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. Empty means unset.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: expiry must be a date (YYYY-MM-DD) or RFC 3339 timestamp", repository.ErrValidation)
}

// @Summary List medicines
// @Tags medicines
// @Produce json
// @Param q query string false "Name contains"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Medicine
// @Failure 400 {object} messageResponse
// @Failure 500 {object} messageResponse
// @Router /medicines [get]
func (s *Server) listMedicines(c *gin.Context) {
	f := repository.MedicineFilter{NameSubstring: c.Query("q")}
	var err error
	if f.MinPrice, err = priceParam(c, "min_price"); err != nil {
		s.fail(c, err)
		return
	}
	if f.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.medicines.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// priceParam reads an optional numeric query parameter.
func priceParam(c *gin.Context, name string) (*float64, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(x) {
		return nil, fmt.Errorf("%w: %s must be a number", repository.ErrValidation, name)
	}
	return &x, nil
}

// bindError turns a JSON type mismatch into a validation error naming the field.
func bindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Errorf("%w: %s must be %s", repository.ErrValidation, typeErr.Field, describeKind(typeErr.Type.Kind()))
	}
	return errInvalidJSON
}

func describeKind(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a whole number"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Struct, reflect.Map:
		return "an object"
	}
	return "a valid value"
}

// @Summary Create medicine
// @Tags medicines
// @Accept json
// @Produce json
// @Param input body medicineReq true "Medicine"
// @Success 201 {object} domain.Medicine
// @Failure 400 {object} messageResponse
// @Router /medicines [post]
func (s *Server) createMedicine(c *gin.Context) {
	var req medicineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	p, err := req.patch()
	if err != nil {
		s.fail(c, err)
		return
	}
	var m domain.Medicine
	p.Apply(&m)
	created, err := s.medicines.Create(c.Request.Context(), m)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary Get medicine by id
// @Tags medicines
// @Produce json
// @Param id path string true "Medicine ID"
// @Success 200 {object} domain.Medicine
// @Failure 400 {object} messageResponse
// @Failure 404 {object} messageResponse
// @Router /medicines/{id} [get]
func (s *Server) getMedicine(c *gin.Context) {
	m, err := s.medicines.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary Update medicine
// @Tags medicines
// @Accept json
// @Produce json
// @Param id path string true "Medicine ID"
// @Param input body medicineReq true "Fields to change"
// @Success 200 {object} domain.Medicine
// @Failure 400 {object} messageResponse
// @Failure 404 {object} messageResponse
// @Router /medicines/{id} [put]
func (s *Server) updateMedicine(c *gin.Context) {
	var req medicineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	p, err := req.patch()
	if err != nil {
		s.fail(c, err)
		return
	}
	m, err := s.medicines.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary Delete medicine
// @Tags medicines
// @Produce json
// @Param id path string true "Medicine ID"
// @Success 200 {object} messageResponse
// @Failure 404 {object} messageResponse
// @Router /medicines/{id} [delete]
func (s *Server) deleteMedicine(c *gin.Context) {
	if err := s.medicines.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Medicine deleted successfully"})
}

// Order handlers
type orderItemReq struct {
	MedicineID string  `json:"medicineId"`
	Name       string  `json:"name"`
	Batch      string  `json:"batch"`
	Price      float64 `json:"price"`
	Quantity   int64   `json:"quantity"`
}

type orderReq struct {
	Customer *domain.Customer `json:"customer"`
	Items    *[]orderItemReq  `json:"items"`
	Status   *string          `json:"status"`
	Date     *time.Time       `json:"date"`
}

func (r orderReq) items() ([]domain.OrderItem, error) {
	if r.Items == nil {
		return nil, nil
	}
	out := make([]domain.OrderItem, 0, len(*r.Items))
	for _, it := range *r.Items {
		id, err := repository.ParseID(it.MedicineID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OrderItem{
			MedicineID: id,
			Name:       it.Name,
			Batch:      it.Batch,
			Price:      it.Price,
			Quantity:   it.Quantity,
		})
	}
	return out, nil
}

// @Summary List orders, most recent first
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Failure 500 {object} messageResponse
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	list, err := s.orders.ListOrders(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Create order
// @Description Decrements the stock of every referenced medicine, then stores the order.
// @Tags orders
// @Accept json
// @Produce json
// @Param input body orderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} messageResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req orderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	items, err := req.items()
	if err != nil {
		s.fail(c, err)
		return
	}
	in := service.NewOrder{Items: items, Date: req.Date}
	if req.Customer != nil {
		in.Customer = *req.Customer
	}
	if req.Status != nil {
		in.Status = *req.Status
	}
	o, err := s.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} messageResponse
// @Failure 404 {object} messageResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Update order
// @Description Stock is not adjusted when items change.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body orderReq true "Fields to change"
// @Success 200 {object} domain.Order
// @Failure 400 {object} messageResponse
// @Failure 404 {object} messageResponse
// @Router /orders/{id} [put]
func (s *Server) updateOrder(c *gin.Context) {
	var req orderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	patch := domain.OrderPatch{Date: req.Date, Customer: req.Customer, Status: req.Status}
	if req.Items != nil {
		items, err := req.items()
		if err != nil {
			s.fail(c, err)
			return
		}
		patch.Items = &items
	}
	o, err := s.orders.UpdateOrder(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order
// @Description Stock decremented by the order is not restored.
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} messageResponse
// @Failure 404 {object} messageResponse
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Order deleted successfully"})
}

// @Summary Dashboard totals
// @Tags dashboard
// @Produce json
// @Success 200 {object} domain.Dashboard
// @Failure 500 {object} messageResponse
// @Router /dashboard [get]
func (s *Server) getDashboard(c *gin.Context) {
	d, err := s.dashboard.Summary(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, messageResponse{Message: err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
