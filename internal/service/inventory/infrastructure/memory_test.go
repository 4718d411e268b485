package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/service/inventory/domain"
)

func TestMemoryReservationRepository_RejectsSecondReservationForOrder(t *testing.T) {
	repo := NewMemoryReservationRepository()
	orderID := uuid.New()
	lines := []domain.ReservationLine{{SKU: "sku-1", Quantity: 1}}

	first := domain.NewReservation(orderID, lines, time.Now().Add(time.Hour))
	if err := repo.Save(context.Background(), first); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// 同一订单不允许第二个预留，和 MySQL 的唯一索引一致
	second := domain.NewReservation(orderID, lines, time.Now().Add(time.Hour))
	if err := repo.Save(context.Background(), second); err == nil {
		t.Fatal("Expected error saving a second reservation for the same order")
	}

	// 同一个预留的更新仍然允许
	first.Release()
	if err := repo.Save(context.Background(), first); err != nil {
		t.Fatalf("Expected update of existing reservation to succeed, got: %v", err)
	}
	stored, err := repo.FindByOrderID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stored.ReservationID != first.ReservationID || stored.Status != domain.ReservationReleased {
		t.Errorf("Expected released reservation %s, got %s with status %s",
			first.ReservationID, stored.ReservationID, stored.Status)
	}
}
