package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"medmanage/internal/domain"
	"medmanage/internal/repository"
	"medmanage/internal/repository/mocks"
)

func setupDashboard(t *testing.T) (*MedicineService, *OrderService, *DashboardService) {
	t.Helper()
	schema := repository.NewSchema(true)
	store := repository.NewMemoryStore(schema)
	orders := repository.NewMemoryOrders(store)
	clock := func() time.Time { return fixedNow }
	ms := NewMedicineService(store)
	os := NewOrderService(store, orders, schema, WithClock(clock))
	ds := NewDashboardService(store, orders).WithClock(clock)
	return ms, os, ds
}

func TestDashboard_Empty(t *testing.T) {
	_, _, ds := setupDashboard(t)
	d, err := ds.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalMedicines != 0 || d.TodayOrders != 0 || d.TotalRevenue != 0 || len(d.RecentOrders) != 0 {
		t.Fatalf("expected zero dashboard, got %+v", d)
	}
	if d.RecentOrders == nil {
		t.Fatalf("recent orders must encode as an empty list")
	}
}

func TestDashboard_RevenueSumsAllOrders(t *testing.T) {
	ctx := context.Background()
	ms, os, ds := setupDashboard(t)
	a, _ := ms.Create(ctx, aspirin())
	b := aspirin()
	b.Name = "Ibuprofen"
	p2, _ := ms.Create(ctx, b)

	for _, items := range [][]domain.OrderItem{
		{{MedicineID: a.ID, Price: 10, Quantity: 2}},
		{{MedicineID: p2.ID, Price: 5, Quantity: 1}},
	} {
		if _, err := os.CreateOrder(ctx, NewOrder{Items: items}); err != nil {
			t.Fatal(err)
		}
	}

	d, err := ds.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalRevenue != 25 {
		t.Fatalf("revenue expected 25, got %v", d.TotalRevenue)
	}
	if d.TotalMedicines != 2 {
		t.Fatalf("medicines expected 2, got %d", d.TotalMedicines)
	}
}

func TestDashboard_RevenueAvoidsFloatDrift(t *testing.T) {
	ctx := context.Background()
	_, os, ds := setupDashboard(t)
	for i := 0; i < 3; i++ {
		items := []domain.OrderItem{{MedicineID: primitive.NewObjectID(), Price: 0.1, Quantity: 1}}
		if _, err := os.CreateOrder(ctx, NewOrder{Items: items}); err != nil {
			t.Fatal(err)
		}
	}
	d, err := ds.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalRevenue != 0.3 {
		t.Fatalf("revenue expected 0.3, got %v", d.TotalRevenue)
	}
}

func TestDashboard_TodayOrdersFromLocalMidnight(t *testing.T) {
	ctx := context.Background()
	_, os, ds := setupDashboard(t)
	for _, d := range []time.Time{
		fixedNow.Add(-25 * time.Hour),
		fixedNow.Add(-1 * time.Hour),
		StartOfDay(fixedNow),
		StartOfDay(fixedNow).Add(-time.Nanosecond),
	} {
		d := d
		if _, err := os.CreateOrder(ctx, NewOrder{Date: &d}); err != nil {
			t.Fatal(err)
		}
	}
	d, err := ds.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.TodayOrders != 2 {
		t.Fatalf("today orders expected 2, got %d", d.TodayOrders)
	}
}

func TestDashboard_RecentOrdersCappedAndNewestFirst(t *testing.T) {
	ctx := context.Background()
	_, os, ds := setupDashboard(t)
	for i := 0; i < 7; i++ {
		d := fixedNow.Add(-time.Duration(i) * time.Minute)
		if _, err := os.CreateOrder(ctx, NewOrder{Date: &d}); err != nil {
			t.Fatal(err)
		}
	}
	d, err := ds.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.RecentOrders) != RecentOrdersLimit {
		t.Fatalf("expected %d recent, got %d", RecentOrdersLimit, len(d.RecentOrders))
	}
	for i, o := range d.RecentOrders {
		want := fixedNow.Add(-time.Duration(i) * time.Minute)
		if !o.Date.Equal(want) {
			t.Fatalf("position %d: got %v want %v", i, o.Date, want)
		}
	}
	if d.TodayOrders != 7 {
		t.Fatalf("today orders expected 7, got %d", d.TodayOrders)
	}
}

func TestDashboard_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	medicines := mocks.NewMockMedicineRepository(ctrl)
	orders := mocks.NewMockOrderRepository(ctrl)
	medicines.EXPECT().Count(gomock.Any()).Return(int64(3), nil)
	orders.EXPECT().CountSince(gomock.Any(), gomock.Any()).Return(int64(0), repository.ErrUnavailable)

	ds := NewDashboardService(medicines, orders)
	if _, err := ds.Summary(context.Background()); !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	in := time.Date(2026, 10, 19, 1, 30, 0, 0, loc)
	got := StartOfDay(in)
	want := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Fatalf("got %v want %v", got, want)
	}
}
