// internal/service/inventory/domain/repository.go
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockRepository 是库存条目的出站端口
type StockRepository interface {
	FindBySKU(ctx context.Context, sku string) (*StockItem, error)
	Save(ctx context.Context, item *StockItem) error
	List(ctx context.Context) ([]*StockItem, error)
}

// ReservationRepository 是预留的出站端口
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Reservation, error)
	// FindExpired 返回一批已过 TTL 且仍为 ACTIVE 的预留，按最早过期排序
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
}

// MovementRepository 是库存变动审计记录的出站端口
type MovementRepository interface {
	Record(ctx context.Context, m *StockMovement) error
}
