package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medmanage/internal/domain"
)

// MemoryStore объединённое in-memory хранилище лекарств и заказов. ID генерируются так же, как в документном хранилище.
type MemoryStore struct {
	mu        sync.RWMutex
	schema    *Schema
	medicines map[primitive.ObjectID]domain.Medicine
	orders    map[primitive.ObjectID]domain.Order
}

func NewMemoryStore(schema *Schema) *MemoryStore {
	return &MemoryStore{
		schema:    schema,
		medicines: make(map[primitive.ObjectID]domain.Medicine),
		orders:    make(map[primitive.ObjectID]domain.Order),
	}
}

// Ensure interfaces
var _ MedicineRepository = (*MemoryStore)(nil)

// MedicineRepository implementation
func (m *MemoryStore) List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Medicine, 0, len(m.medicines))
	for _, med := range m.medicines {
		if f.Match(med) {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Medicine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	med, ok := m.medicines[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := med
	return &cp, nil
}

func (m *MemoryStore) Insert(ctx context.Context, med *domain.Medicine) error {
	if err := m.schema.Medicine(*med); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	med.ID = primitive.NewObjectID()
	m.medicines[med.ID] = *med
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id primitive.ObjectID, patch domain.MedicinePatch) (*domain.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.medicines[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&med)
	if err := m.schema.MedicinePatch(med, patch); err != nil {
		return nil, err
	}
	m.medicines[id] = med
	return &med, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.medicines[id]; !ok {
		return ErrNotFound
	}
	delete(m.medicines, id)
	return nil
}

func (m *MemoryStore) IncrementStock(ctx context.Context, id primitive.ObjectID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.medicines[id]
	if !ok {
		return ErrNotFound
	}
	med.Stock += delta
	m.medicines[id] = med
	return nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.medicines)), nil
}

func (m *MemoryStore) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medicines = make(map[primitive.ObjectID]domain.Medicine)
	return nil
}

// MemoryOrders реализует OrderRepository поверх общего MemoryStore
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) List(ctx context.Context) ([]domain.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	out := make([]domain.Order, 0, len(mo.store.orders))
	for _, o := range mo.store.orders {
		out = append(out, cloneOrder(o))
	}
	sortByDateDesc(out)
	return out, nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	o, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) Insert(ctx context.Context, o *domain.Order) error {
	if err := mo.store.schema.Order(*o); err != nil {
		return err
	}
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	o.ID = primitive.NewObjectID()
	mo.store.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) Update(ctx context.Context, id primitive.ObjectID, patch domain.OrderPatch) (*domain.Order, error) {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	o, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = cloneOrder(o)
	patch.Apply(&o)
	if err := mo.store.schema.OrderPatch(o, patch); err != nil {
		return nil, err
	}
	mo.store.orders[id] = cloneOrder(o)
	return &o, nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id primitive.ObjectID) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	if _, ok := mo.store.orders[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.orders, id)
	return nil
}

func (mo *MemoryOrders) CountSince(ctx context.Context, since time.Time) (int64, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	var n int64
	for _, o := range mo.store.orders {
		if !o.Date.Before(since) {
			n++
		}
	}
	return n, nil
}

// items are copied so callers cannot mutate stored state
func cloneOrder(o domain.Order) domain.Order {
	if o.Items != nil {
		o.Items = append([]domain.OrderItem(nil), o.Items...)
	}
	return o
}

// sortByDateDesc orders by date, newest first; ties fall back to id so output is stable.
func sortByDateDesc(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].Date.Equal(orders[j].Date) {
			return orders[i].Date.After(orders[j].Date)
		}
		return orders[i].ID.Hex() > orders[j].ID.Hex()
	})
}
