package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"marketplace/internal/service/inventory/domain"
)

// flakyAPI 对指定的预留 ID 返回错误，其余委托给真实服务
type flakyAPI struct {
	ReservationAPI
	failOn uuid.UUID
}

func (f *flakyAPI) Expire(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	if reservationID == f.failOn {
		return nil, errors.New("simulated expiry failure")
	}
	return f.ReservationAPI.Expire(ctx, reservationID)
}

func TestReaper_Sweep(t *testing.T) {
	f := newFixture(t, -time.Minute) // TTL 为负，预留一创建就超时
	f.seed(t, "sku-1", 10)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		reservation, err := f.service.Reserve(context.Background(), uuid.New(),
			[]domain.ReservationLine{{SKU: "sku-1", Quantity: 2}})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		ids = append(ids, reservation.ReservationID)
	}

	reaper := NewReaper(f.reservations, f.service, 100, prometheus.NewRegistry())
	reaper.Sweep(context.Background())

	for _, id := range ids {
		reservation, err := f.reservations.FindByID(context.Background(), id)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if reservation.Status != domain.ReservationExpired {
			t.Errorf("Expected reservation %s EXPIRED, got %s", id, reservation.Status)
		}
	}
	if available, reserved := f.available(t, "sku-1"); available != 10 || reserved != 0 {
		t.Errorf("Expected all stock returned, got available=%d reserved=%d", available, reserved)
	}
}

func TestReaper_Sweep_FailureIsolation(t *testing.T) {
	f := newFixture(t, -time.Minute)
	f.seed(t, "sku-1", 10)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		reservation, err := f.service.Reserve(context.Background(), uuid.New(),
			[]domain.ReservationLine{{SKU: "sku-1", Quantity: 1}})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		ids = append(ids, reservation.ReservationID)
	}

	api := &flakyAPI{ReservationAPI: f.service, failOn: ids[1]}
	reaper := NewReaper(f.reservations, api, 100, prometheus.NewRegistry())
	reaper.Sweep(context.Background())

	// 中间一条失败，前后两条仍然要被清理
	for i, id := range ids {
		reservation, _ := f.reservations.FindByID(context.Background(), id)
		want := domain.ReservationExpired
		if i == 1 {
			want = domain.ReservationActive
		}
		if reservation.Status != want {
			t.Errorf("Expected reservation %d status %s, got %s", i, want, reservation.Status)
		}
	}
}

func TestReaper_Sweep_RespectsBatchSize(t *testing.T) {
	f := newFixture(t, -time.Minute)
	f.seed(t, "sku-1", 10)

	for i := 0; i < 5; i++ {
		if _, err := f.service.Reserve(context.Background(), uuid.New(),
			[]domain.ReservationLine{{SKU: "sku-1", Quantity: 1}}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	reaper := NewReaper(f.reservations, f.service, 2, prometheus.NewRegistry())
	reaper.Sweep(context.Background())

	remaining, err := f.reservations.FindExpired(context.Background(), time.Now(), 100)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(remaining) != 3 {
		t.Errorf("Expected 3 reservations left after batch of 2, got %d", len(remaining))
	}
}
