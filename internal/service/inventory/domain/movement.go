// internal/service/inventory/domain/movement.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementType 标识一次库存变动的类别
type MovementType string

const (
	MovementReserve   MovementType = "RESERVE"
	MovementRelease   MovementType = "RELEASE"
	MovementConfirm   MovementType = "CONFIRM"
	MovementFinalize  MovementType = "FINALIZE"
	MovementReinstate MovementType = "REINSTATE"
	MovementRestock   MovementType = "RESTOCK"
)

// StockMovement 是库存变动的审计记录，只追加不修改
type StockMovement struct {
	ID            int64
	SKU           string
	Type          MovementType
	Quantity      int
	ReservationID *uuid.UUID
	Actor         string
	Note          string
	CreatedAt     time.Time
}

func NewStockMovement(sku string, t MovementType, qty int, reservationID *uuid.UUID, actor, note string) *StockMovement {
	return &StockMovement{
		SKU:           sku,
		Type:          t,
		Quantity:      qty,
		ReservationID: reservationID,
		Actor:         actor,
		Note:          note,
		CreatedAt:     time.Now(),
	}
}
