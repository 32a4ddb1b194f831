package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"medmanage/internal/domain"
	"medmanage/internal/logger"
	"medmanage/internal/metrics"
	"medmanage/internal/repository"
)

// OrderService implements order placement and the generic order operations.
type OrderService struct {
	medicines repository.MedicineRepository
	orders    repository.OrderRepository
	schema    *repository.Schema
	metrics   *metrics.Metrics
	now       func() time.Time
}

// OrderOption customises an OrderService.
type OrderOption func(*OrderService)

// WithClock replaces time.Now as the source of default order dates.
func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

// WithMetrics records order and stock adjustment counters on m.
func WithMetrics(m *metrics.Metrics) OrderOption {
	return func(s *OrderService) { s.metrics = m }
}

func NewOrderService(medicines repository.MedicineRepository, orders repository.OrderRepository, schema *repository.Schema, opts ...OrderOption) *OrderService {
	s := &OrderService{medicines: medicines, orders: orders, schema: schema, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOrder is the input of CreateOrder. Status and Date are optional.
type NewOrder struct {
	Customer domain.Customer
	Items    []domain.OrderItem
	Status   string
	Date     *time.Time
}

// CreateOrder decrements stock for every item, then persists the order.
//
// Stock adjustments are relative increments issued in item order. A failed
// adjustment is logged and skipped; the order is still written and applied
// decrements are never rolled back. Stock is not checked and may go negative.
func (s *OrderService) CreateOrder(ctx context.Context, in NewOrder) (*domain.Order, error) {
	o := domain.Order{
		Customer: in.Customer,
		Items:    append([]domain.OrderItem(nil), in.Items...),
		Status:   in.Status,
	}
	if o.Status == "" {
		o.Status = domain.DefaultOrderStatus
	}
	if in.Date != nil {
		o.Date = *in.Date
	} else {
		o.Date = s.now()
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}

	// reject malformed orders before touching stock
	if err := s.schema.Order(o); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	for _, it := range o.Items {
		if err := s.medicines.IncrementStock(ctx, it.MedicineID, -it.Quantity); err != nil {
			s.metrics.StockAdjustmentFailed()
			log.Warn("stock adjustment failed",
				zap.String("medicine_id", it.MedicineID.Hex()),
				zap.Int64("quantity", it.Quantity),
				zap.Error(err))
		}
	}

	if err := s.orders.Insert(ctx, &o); err != nil {
		return nil, err
	}
	s.metrics.OrderCreated()
	log.Info("order created",
		zap.String("order_id", o.ID.Hex()),
		zap.Int("items", len(o.Items)))
	return &o, nil
}

// ListOrders returns every order, most recent first.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

// GetOrder returns the order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, oid)
}

// UpdateOrder merges patch into the stored order. Stock is not re-adjusted when items change.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.orders.Update(ctx, oid, patch)
}

// DeleteOrder removes the order. Decremented stock is not restored.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	return s.orders.Delete(ctx, oid)
}
