package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"medmanage/internal/domain"
	"medmanage/internal/repository"
)

// RecentOrdersLimit caps the orders echoed on the dashboard.
const RecentOrdersLimit = 5

// DashboardService computes the dashboard aggregates on every call.
type DashboardService struct {
	medicines repository.MedicineRepository
	orders    repository.OrderRepository
	now       func() time.Time
}

func NewDashboardService(medicines repository.MedicineRepository, orders repository.OrderRepository) *DashboardService {
	return &DashboardService{medicines: medicines, orders: orders, now: time.Now}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	cp := *s
	cp.now = now
	return &cp
}

// Summary folds both collections into the dashboard view.
func (s *DashboardService) Summary(ctx context.Context) (*domain.Dashboard, error) {
	totalMedicines, err := s.medicines.Count(ctx)
	if err != nil {
		return nil, err
	}

	todayOrders, err := s.orders.CountSince(ctx, StartOfDay(s.now()))
	if err != nil {
		return nil, err
	}

	// List is sorted by date descending, so the head is the most recent orders.
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	for _, o := range all {
		revenue = revenue.Add(o.Total())
	}

	recent := all
	if len(recent) > RecentOrdersLimit {
		recent = recent[:RecentOrdersLimit]
	}

	return &domain.Dashboard{
		TotalMedicines: totalMedicines,
		TodayOrders:    todayOrders,
		TotalRevenue:   revenue.InexactFloat64(),
		RecentOrders:   recent,
	}, nil
}

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
