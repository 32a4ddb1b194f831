package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medmanage/internal/domain"
)

//go:generate mockgen -destination=mocks/repository_mock.go -package=mocks medmanage/internal/repository MedicineRepository,OrderRepository

var (
	// ErrInvalidID возвращается для идентификаторов, не являющихся 24-символьным hex ObjectID
	ErrInvalidID = errors.New("invalid identifier")
	// ErrNotFound возвращается, когда запись с корректным id не найдена
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps schema violations on write.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable wraps failures of the underlying store.
	ErrUnavailable = errors.New("storage unavailable")
)

// ParseID converts a hex identifier into an ObjectID.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// MedicineFilter параметры фильтрации списка лекарств. Нулевое значение пропускает всё.
type MedicineFilter struct {
	NameSubstring string
	MinPrice      *float64
	MaxPrice      *float64
}

// Match reports whether m passes the filter.
func (f MedicineFilter) Match(m domain.Medicine) bool {
	if !containsIgnoreCase(m.Name, f.NameSubstring) {
		return false
	}
	if f.MinPrice != nil && m.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && m.Price > *f.MaxPrice {
		return false
	}
	return true
}

// MedicineRepository интерфейс репозитория лекарств
type MedicineRepository interface {
	List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Medicine, error)
	Insert(ctx context.Context, m *domain.Medicine) error
	Update(ctx context.Context, id primitive.ObjectID, patch domain.MedicinePatch) (*domain.Medicine, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// IncrementStock adds delta to the stored stock as a relative adjustment.
	IncrementStock(ctx context.Context, id primitive.ObjectID, delta int64) error
	Count(ctx context.Context) (int64, error)
	// DeleteAll empties the catalog; used by seeding.
	DeleteAll(ctx context.Context) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	// List returns every order, most recent date first.
	List(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	Insert(ctx context.Context, o *domain.Order) error
	Update(ctx context.Context, id primitive.ObjectID, patch domain.OrderPatch) (*domain.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// CountSince counts orders dated at or after since.
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
