// internal/service/inventory/domain/errors.go
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrStockItemNotFound   = errors.New("stock item not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// InsufficientStockError 表示可用库存不足以满足本次预占。
// 返回该错误时库存状态保持不变。
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for sku %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// ReservationNotActiveError 表示调用方试图对已终态的预留执行 confirm
type ReservationNotActiveError struct {
	ReservationID uuid.UUID
	Status        ReservationStatus
}

func (e *ReservationNotActiveError) Error() string {
	return fmt.Sprintf("reservation %s is not active (status: %s)", e.ReservationID, e.Status)
}

// ReservationExpiredError 表示预留已过 TTL，不允许再确认。
// 清理任务稍后会把它转为 EXPIRED 并归还库存。
type ReservationExpiredError struct {
	ReservationID uuid.UUID
}

func (e *ReservationExpiredError) Error() string {
	return fmt.Sprintf("reservation %s has expired", e.ReservationID)
}
