// internal/service/inventory/infrastructure/memory.go
package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"marketplace/internal/service/inventory/domain"
)

// 内存仓储，用于测试和本地运行。读写都走值拷贝，模拟真实存储的隔离性。

type MemoryStockRepository struct {
	mu    sync.RWMutex
	items map[string]domain.StockItem
}

func NewMemoryStockRepository() *MemoryStockRepository {
	return &MemoryStockRepository{items: make(map[string]domain.StockItem)}
}

var _ domain.StockRepository = (*MemoryStockRepository)(nil)

func (r *MemoryStockRepository) FindBySKU(_ context.Context, sku string) (*domain.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[sku]
	if !ok {
		return nil, domain.ErrStockItemNotFound
	}
	return &item, nil
}

func (r *MemoryStockRepository) Save(_ context.Context, item *domain.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.SKU] = *item
	return nil
}

func (r *MemoryStockRepository) List(_ context.Context) ([]*domain.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.StockItem, 0, len(r.items))
	for _, item := range r.items {
		item := item
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

type MemoryReservationRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.Reservation
	byOrder map[uuid.UUID]uuid.UUID
}

func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		byID:    make(map[uuid.UUID]domain.Reservation),
		byOrder: make(map[uuid.UUID]uuid.UUID),
	}
}

var _ domain.ReservationRepository = (*MemoryReservationRepository)(nil)

func (r *MemoryReservationRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	return copyReservation(res), nil
}

func (r *MemoryReservationRepository) FindByOrderID(_ context.Context, orderID uuid.UUID) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	res := r.byID[id]
	return copyReservation(res), nil
}

func (r *MemoryReservationRepository) FindExpired(_ context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var expired []*domain.Reservation
	for _, res := range r.byID {
		if res.Status == domain.ReservationActive && !res.ExpiresAt.After(now) {
			expired = append(expired, copyReservation(res))
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *MemoryReservationRepository) Save(_ context.Context, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 一个订单最多一个预留，和 MySQL 上 order_id 的唯一索引保持一致
	if existing, ok := r.byOrder[res.OrderID]; ok && existing != res.ReservationID {
		return errors.Errorf("order %s already has reservation %s", res.OrderID, existing)
	}
	r.byID[res.ReservationID] = *copyReservation(*res)
	r.byOrder[res.OrderID] = res.ReservationID
	return nil
}

func copyReservation(res domain.Reservation) *domain.Reservation {
	lines := make([]domain.ReservationLine, len(res.Lines))
	copy(lines, res.Lines)
	res.Lines = lines
	return &res
}

type MemoryMovementRepository struct {
	mu        sync.Mutex
	movements []domain.StockMovement
}

func NewMemoryMovementRepository() *MemoryMovementRepository {
	return &MemoryMovementRepository{}
}

var _ domain.MovementRepository = (*MemoryMovementRepository)(nil)

func (r *MemoryMovementRepository) Record(_ context.Context, m *domain.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := *m
	record.ID = int64(len(r.movements) + 1)
	r.movements = append(r.movements, record)
	return nil
}

// Movements 返回审计记录的快照
func (r *MemoryMovementRepository) Movements() []domain.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StockMovement, len(r.movements))
	copy(out, r.movements)
	return out
}
