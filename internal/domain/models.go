package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medicine is one stocked product batch.
type Medicine struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name" validate:"required"`
	Batch        string             `json:"batch" bson:"batch" validate:"required"`
	Manufacturer string             `json:"manufacturer" bson:"manufacturer" validate:"required"`
	Expiry       time.Time          `json:"expiry" bson:"expiry" validate:"required"`
	Stock        int64              `json:"stock" bson:"stock" validate:"min=0"`
	Price        float64            `json:"price" bson:"price" validate:"min=0"`
}

// MedicinePatch carries the fields of a partial update; nil means untouched.
type MedicinePatch struct {
	Name         *string
	Batch        *string
	Manufacturer *string
	Expiry       *time.Time
	Stock        *int64
	Price        *float64
}

// Apply merges the patch into m.
func (p MedicinePatch) Apply(m *Medicine) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Batch != nil {
		m.Batch = *p.Batch
	}
	if p.Manufacturer != nil {
		m.Manufacturer = *p.Manufacturer
	}
	if p.Expiry != nil {
		m.Expiry = *p.Expiry
	}
	if p.Stock != nil {
		m.Stock = *p.Stock
	}
	if p.Price != nil {
		m.Price = *p.Price
	}
}

// DefaultOrderStatus is assigned when an order is placed without a status.
const DefaultOrderStatus = "Pending"

// Customer is embedded in an order and has no identity of its own.
type Customer struct {
	Name    string `json:"name" bson:"name"`
	Phone   string `json:"phone" bson:"phone"`
	Address string `json:"address" bson:"address"`
}

// OrderItem is a snapshot of a purchased line. MedicineID is a lookup-only reference.
type OrderItem struct {
	MedicineID primitive.ObjectID `json:"medicineId" bson:"medicineId"`
	Name       string             `json:"name" bson:"name"`
	Batch      string             `json:"batch" bson:"batch"`
	Price      float64            `json:"price" bson:"price" validate:"min=0"`
	Quantity   int64              `json:"quantity" bson:"quantity" validate:"min=1"`
}

// Subtotal returns price × quantity.
func (it OrderItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(it.Quantity))
}

// Order is one customer transaction.
type Order struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Date     time.Time          `json:"date" bson:"date"`
	Customer Customer           `json:"customer" bson:"customer"`
	Items    []OrderItem        `json:"items" bson:"items" validate:"dive"`
	Status   string             `json:"status" bson:"status"`
}

// Total sums the subtotals of every line.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// OrderPatch carries the fields of a partial order update. Items replace the whole sequence.
type OrderPatch struct {
	Date     *time.Time
	Customer *Customer
	Items    *[]OrderItem
	Status   *string
}

// Apply merges the patch into o.
func (p OrderPatch) Apply(o *Order) {
	if p.Date != nil {
		o.Date = *p.Date
	}
	if p.Customer != nil {
		o.Customer = *p.Customer
	}
	if p.Items != nil {
		o.Items = *p.Items
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
}

// Dashboard holds the aggregates shown on the landing screen.
type Dashboard struct {
	TotalMedicines int64   `json:"totalMedicines"`
	TodayOrders    int64   `json:"todayOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
	RecentOrders   []Order `json:"recentOrders"`
}
