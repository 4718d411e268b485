// internal/service/inventory/infrastructure/models.go
package infrastructure

import (
	"time"

	"github.com/google/uuid"

	"marketplace/internal/service/inventory/domain"
)

// 数据库模型与领域模型分离，通过 mapper 互转

type StockItemModel struct {
	SKU               string    `gorm:"column:sku;primaryKey;size:100"`
	ProductID         string    `gorm:"column:product_id;type:char(36);not null"`
	AvailableQty      int       `gorm:"column:available_qty;not null"`
	ReservedQty       int       `gorm:"column:reserved_qty;not null"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (StockItemModel) TableName() string { return "stock_items" }

type ReservationModel struct {
	ReservationID string                 `gorm:"column:reservation_id;primaryKey;type:char(36)"`
	OrderID       string                 `gorm:"column:order_id;type:char(36);uniqueIndex;not null"`
	Status        string                 `gorm:"column:status;size:30;not null;index:idx_status_expires"`
	ExpiresAt     time.Time              `gorm:"column:expires_at;not null;index:idx_status_expires"`
	CreatedAt     time.Time              `gorm:"column:created_at"`
	UpdatedAt     time.Time              `gorm:"column:updated_at"`
	Lines         []ReservationLineModel `gorm:"foreignKey:ReservationID;references:ReservationID"`
}

func (ReservationModel) TableName() string { return "reservations" }

type ReservationLineModel struct {
	ID            int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationID string `gorm:"column:reservation_id;type:char(36);uniqueIndex:uniq_res_sku;not null"`
	SKU           string `gorm:"column:sku;size:100;uniqueIndex:uniq_res_sku;not null"`
	Quantity      int    `gorm:"column:quantity;not null"`
}

func (ReservationLineModel) TableName() string { return "reservation_lines" }

type StockMovementModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SKU           string    `gorm:"column:sku;size:100;not null;index"`
	Type          string    `gorm:"column:movement_type;size:20;not null"`
	Quantity      int       `gorm:"column:quantity;not null"`
	ReservationID *string   `gorm:"column:reservation_id;type:char(36)"`
	Actor         string    `gorm:"column:actor;size:100"`
	Note          string    `gorm:"column:note;size:500"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (StockMovementModel) TableName() string { return "stock_movements" }

// mapper

func toStockItemModel(item *domain.StockItem) *StockItemModel {
	return &StockItemModel{
		SKU:               item.SKU,
		ProductID:         item.ProductID.String(),
		AvailableQty:      item.AvailableQty,
		ReservedQty:       item.ReservedQty,
		LowStockThreshold: item.LowStockThreshold,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

func toDomainStockItem(m *StockItemModel) *domain.StockItem {
	productID, _ := uuid.Parse(m.ProductID)
	return &domain.StockItem{
		SKU:               m.SKU,
		ProductID:         productID,
		AvailableQty:      m.AvailableQty,
		ReservedQty:       m.ReservedQty,
		LowStockThreshold: m.LowStockThreshold,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toReservationModel(r *domain.Reservation) *ReservationModel {
	lines := make([]ReservationLineModel, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, ReservationLineModel{
			ReservationID: r.ReservationID.String(),
			SKU:           line.SKU,
			Quantity:      line.Quantity,
		})
	}
	return &ReservationModel{
		ReservationID: r.ReservationID.String(),
		OrderID:       r.OrderID.String(),
		Status:        string(r.Status),
		ExpiresAt:     r.ExpiresAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Lines:         lines,
	}
}

func toDomainReservation(m *ReservationModel) *domain.Reservation {
	reservationID, _ := uuid.Parse(m.ReservationID)
	orderID, _ := uuid.Parse(m.OrderID)
	lines := make([]domain.ReservationLine, 0, len(m.Lines))
	for _, line := range m.Lines {
		lines = append(lines, domain.ReservationLine{SKU: line.SKU, Quantity: line.Quantity})
	}
	return &domain.Reservation{
		ReservationID: reservationID,
		OrderID:       orderID,
		Status:        domain.ReservationStatus(m.Status),
		ExpiresAt:     m.ExpiresAt,
		Lines:         lines,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toMovementModel(m *domain.StockMovement) *StockMovementModel {
	var reservationID *string
	if m.ReservationID != nil {
		s := m.ReservationID.String()
		reservationID = &s
	}
	return &StockMovementModel{
		SKU:           m.SKU,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		ReservationID: reservationID,
		Actor:         m.Actor,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}
