// internal/service/inventory/domain/stock.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StockItem 是库存聚合的根实体，按 SKU 唯一。
// 不变式: AvailableQty >= 0 && ReservedQty >= 0，总量 = 可用 + 预占。
// 所有数量变更都必须在持有该 SKU 的互斥租约时进行。
type StockItem struct {
	SKU               string
	ProductID         uuid.UUID
	AvailableQty      int
	ReservedQty       int
	LowStockThreshold int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewStockItem 创建一个新的库存条目
func NewStockItem(sku string, productID uuid.UUID, initialQty, lowStockThreshold int) (*StockItem, error) {
	if sku == "" {
		return nil, fmt.Errorf("sku must not be empty")
	}
	if initialQty < 0 {
		return nil, fmt.Errorf("initial quantity must not be negative")
	}
	now := time.Now()
	return &StockItem{
		SKU:               sku,
		ProductID:         productID,
		AvailableQty:      initialQty,
		ReservedQty:       0,
		LowStockThreshold: lowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// TotalQty 总量由可用量和预占量推导，不变式因此恒成立
func (s *StockItem) TotalQty() int {
	return s.AvailableQty + s.ReservedQty
}

func (s *StockItem) CanReserve(qty int) bool {
	return s.AvailableQty >= qty
}

// Reserve 把 qty 个单位从可用转为预占。
// 可用不足时返回 InsufficientStockError，状态不变。
func (s *StockItem) Reserve(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	if !s.CanReserve(qty) {
		return &InsufficientStockError{SKU: s.SKU, Requested: qty, Available: s.AvailableQty}
	}
	s.AvailableQty -= qty
	s.ReservedQty += qty
	s.UpdatedAt = time.Now()
	return nil
}

// ReleaseReservation 把 qty 个预占单位归还为可用
func (s *StockItem) ReleaseReservation(qty int) error {
	if qty <= 0 || qty > s.ReservedQty {
		return fmt.Errorf("cannot release %d units of sku %s: reserved %d", qty, s.SKU, s.ReservedQty)
	}
	s.ReservedQty -= qty
	s.AvailableQty += qty
	s.UpdatedAt = time.Now()
	return nil
}

// Finalize 把 qty 个预占单位转为已消耗，总量随之下降
func (s *StockItem) Finalize(qty int) error {
	if qty <= 0 || qty > s.ReservedQty {
		return fmt.Errorf("cannot finalize %d units of sku %s: reserved %d", qty, s.SKU, s.ReservedQty)
	}
	s.ReservedQty -= qty
	s.UpdatedAt = time.Now()
	return nil
}

// Reinstate 把 qty 个已消耗的单位重新计回预占，
// 用于确认落库失败后的回滚，是 Finalize 的逆操作
func (s *StockItem) Reinstate(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reinstate quantity must be positive, got %d", qty)
	}
	s.ReservedQty += qty
	s.UpdatedAt = time.Now()
	return nil
}

// Restock 增加可用库存（补货入库）
func (s *StockItem) Restock(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("restock quantity must be positive, got %d", qty)
	}
	s.AvailableQty += qty
	s.UpdatedAt = time.Now()
	return nil
}

func (s *StockItem) IsLowStock() bool {
	return s.AvailableQty <= s.LowStockThreshold
}
