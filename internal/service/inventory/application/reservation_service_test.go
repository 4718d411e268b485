package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/pkg/lock"
	"marketplace/internal/service/inventory/domain"
	"marketplace/internal/service/inventory/infrastructure"
)

type fixture struct {
	stocks       *infrastructure.MemoryStockRepository
	reservations *infrastructure.MemoryReservationRepository
	movements    *infrastructure.MemoryMovementRepository
	stock        *StockService
	service      *ReservationService
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	stocks := infrastructure.NewMemoryStockRepository()
	reservations := infrastructure.NewMemoryReservationRepository()
	movements := infrastructure.NewMemoryMovementRepository()
	stock := NewStockService(stocks, movements, lock.NewKeyMutex(), nil)
	service := NewReservationService(reservations, stock, nil, ttl)
	return &fixture{
		stocks:       stocks,
		reservations: reservations,
		movements:    movements,
		stock:        stock,
		service:      service,
	}
}

func (f *fixture) seed(t *testing.T, sku string, qty int) {
	t.Helper()
	item, err := domain.NewStockItem(sku, uuid.New(), qty, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := f.stocks.Save(context.Background(), item); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func (f *fixture) available(t *testing.T, sku string) (int, int) {
	t.Helper()
	item, err := f.stocks.FindBySKU(context.Background(), sku)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return item.AvailableQty, item.ReservedQty
}

func TestReservationService_Reserve(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 5)

	reservation, err := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 3}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if reservation.Status != domain.ReservationActive {
		t.Errorf("Expected ACTIVE, got %s", reservation.Status)
	}

	available, reserved := f.available(t, "sku-1")
	if available != 2 || reserved != 3 {
		t.Errorf("Expected available=2 reserved=3, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Reserve_IdempotentByOrder(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 5)
	orderID := uuid.New()
	lines := []domain.ReservationLine{{SKU: "sku-1", Quantity: 3}}

	first, err := f.service.Reserve(context.Background(), orderID, lines)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := f.service.Reserve(context.Background(), orderID, lines)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if first.ReservationID != second.ReservationID {
		t.Errorf("Expected same reservation, got %s and %s", first.ReservationID, second.ReservationID)
	}
	// 第二次调用不能再扣库存
	available, reserved := f.available(t, "sku-1")
	if available != 2 || reserved != 3 {
		t.Errorf("Expected available=2 reserved=3, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Reserve_MultiLineAllOrNothing(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 10)
	f.seed(t, "sku-2", 1)

	_, err := f.service.Reserve(context.Background(), uuid.New(), []domain.ReservationLine{
		{SKU: "sku-1", Quantity: 5},
		{SKU: "sku-2", Quantity: 2},
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got: %v", err)
	}
	if insufficient.SKU != "sku-2" {
		t.Errorf("Expected failure on sku-2, got %s", insufficient.SKU)
	}

	// 任何一行失败都不能留下部分扣减
	if available, reserved := f.available(t, "sku-1"); available != 10 || reserved != 0 {
		t.Errorf("Expected sku-1 untouched, got available=%d reserved=%d", available, reserved)
	}
	if available, reserved := f.available(t, "sku-2"); available != 1 || reserved != 0 {
		t.Errorf("Expected sku-2 untouched, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Reserve_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 10)

	const callers = 50
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Reserve(context.Background(), uuid.New(),
				[]domain.ReservationLine{{SKU: "sku-1", Quantity: 1}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			var insufficient *domain.InsufficientStockError
			if !errors.As(err, &insufficient) {
				t.Errorf("Expected InsufficientStockError, got: %v", err)
			}
		}
	}
	if succeeded != 10 {
		t.Errorf("Expected exactly 10 successful reservations, got %d", succeeded)
	}
	if available, reserved := f.available(t, "sku-1"); available != 0 || reserved != 10 {
		t.Errorf("Expected available=0 reserved=10, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Reserve_DuplicateSKULines(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 1)

	// 两行各要 1 个，合计 2 个，可用只有 1 个，必须整批失败
	_, err := f.service.Reserve(context.Background(), uuid.New(), []domain.ReservationLine{
		{SKU: "sku-1", Quantity: 1},
		{SKU: "sku-1", Quantity: 1},
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got: %v", err)
	}
	if available, reserved := f.available(t, "sku-1"); available != 1 || reserved != 0 {
		t.Errorf("Expected sku-1 untouched, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Reserve_MergesDuplicateSKULines(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 2)

	reservation, err := f.service.Reserve(context.Background(), uuid.New(), []domain.ReservationLine{
		{SKU: "sku-1", Quantity: 1},
		{SKU: "sku-1", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	// 重复行合并成一行，账本扣掉合计数量
	if len(reservation.Lines) != 1 || reservation.Lines[0].Quantity != 2 {
		t.Fatalf("Expected single merged line of quantity 2, got %+v", reservation.Lines)
	}
	if available, reserved := f.available(t, "sku-1"); available != 0 || reserved != 2 {
		t.Errorf("Expected available=0 reserved=2, got available=%d reserved=%d", available, reserved)
	}

	// 过期归还合并后的全部数量
	if _, err := f.service.Expire(context.Background(), reservation.ReservationID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if available, reserved := f.available(t, "sku-1"); available != 2 || reserved != 0 {
		t.Errorf("Expected available=2 reserved=0, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_ConfirmThenLateRelease(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 5)

	reservation, err := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 3}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	confirmed, err := f.service.Confirm(context.Background(), reservation.ReservationID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if confirmed.Status != domain.ReservationConfirmed {
		t.Errorf("Expected CONFIRMED, got %s", confirmed.Status)
	}
	if available, reserved := f.available(t, "sku-1"); available != 2 || reserved != 0 {
		t.Errorf("Expected available=2 reserved=0, got available=%d reserved=%d", available, reserved)
	}

	// 确认后的迟到释放是空操作，不能把已消耗的量加回去
	released, err := f.service.Release(context.Background(), reservation.ReservationID, "late cancel")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if released.Status != domain.ReservationConfirmed {
		t.Errorf("Expected status to stay CONFIRMED, got %s", released.Status)
	}
	if available, reserved := f.available(t, "sku-1"); available != 2 || reserved != 0 {
		t.Errorf("Expected available=2 reserved=0, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Confirm_Idempotent(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 5)

	reservation, _ := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 2}})

	if _, err := f.service.Confirm(context.Background(), reservation.ReservationID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := f.service.Confirm(context.Background(), reservation.ReservationID); err != nil {
		t.Fatalf("Expected idempotent confirm, got: %v", err)
	}
	// 第二次确认不能再扣一次
	if available, reserved := f.available(t, "sku-1"); available != 3 || reserved != 0 {
		t.Errorf("Expected available=3 reserved=0, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Confirm_PastTTL(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.seed(t, "sku-1", 5)

	reservation, _ := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 2}})

	// 把时钟拨过 TTL
	f.service.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := f.service.Confirm(context.Background(), reservation.ReservationID)
	var expired *domain.ReservationExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("Expected ReservationExpiredError, got: %v", err)
	}
	// 库存保持预占，等清理任务归还
	if available, reserved := f.available(t, "sku-1"); available != 3 || reserved != 2 {
		t.Errorf("Expected available=3 reserved=2, got available=%d reserved=%d", available, reserved)
	}
}

// flakyReservations 可以按需让 Save 失败，其余委托给内存实现
type flakyReservations struct {
	domain.ReservationRepository
	failSave bool
}

func (r *flakyReservations) Save(ctx context.Context, res *domain.Reservation) error {
	if r.failSave {
		return errors.New("simulated save failure")
	}
	return r.ReservationRepository.Save(ctx, res)
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyReservations) {
	t.Helper()
	f := newFixture(t, time.Hour)
	flaky := &flakyReservations{ReservationRepository: f.reservations}
	f.service = NewReservationService(flaky, f.stock, nil, time.Hour)
	return f, flaky
}

func TestReservationService_Confirm_SaveFailureRestoresStock(t *testing.T) {
	f, flaky := newFlakyFixture(t)
	f.seed(t, "sku-1", 5)

	reservation, err := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 3}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	flaky.failSave = true
	if _, err := f.service.Confirm(context.Background(), reservation.ReservationID); err == nil {
		t.Fatal("Expected error when reservation save fails")
	}

	// 已消耗的量要补回预占，落库里的预留仍是 ACTIVE，可以重试
	if available, reserved := f.available(t, "sku-1"); available != 2 || reserved != 3 {
		t.Errorf("Expected available=2 reserved=3, got available=%d reserved=%d", available, reserved)
	}
	stored, err := f.reservations.FindByID(context.Background(), reservation.ReservationID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stored.Status != domain.ReservationActive {
		t.Errorf("Expected stored reservation to stay ACTIVE, got %s", stored.Status)
	}

	flaky.failSave = false
	if _, err := f.service.Confirm(context.Background(), reservation.ReservationID); err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if available, reserved := f.available(t, "sku-1"); available != 2 || reserved != 0 {
		t.Errorf("Expected available=2 reserved=0, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Release_SaveFailureKeepsStockReserved(t *testing.T) {
	f, flaky := newFlakyFixture(t)
	f.seed(t, "sku-1", 5)

	reservation, err := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 3}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	flaky.failSave = true
	if _, err := f.service.Release(context.Background(), reservation.ReservationID, "cancel"); err == nil {
		t.Fatal("Expected error when reservation save fails")
	}

	// 刚归还的量要重新预占，否则 ACTIVE 的预留和账本对不上
	if available, reserved := f.available(t, "sku-1"); available != 2 || reserved != 3 {
		t.Errorf("Expected available=2 reserved=3, got available=%d reserved=%d", available, reserved)
	}

	flaky.failSave = false
	if _, err := f.service.Release(context.Background(), reservation.ReservationID, "cancel"); err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if available, reserved := f.available(t, "sku-1"); available != 5 || reserved != 0 {
		t.Errorf("Expected available=5 reserved=0, got available=%d reserved=%d", available, reserved)
	}
}

func TestReservationService_Expire_ReturnsStock(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "sku-1", 5)

	reservation, _ := f.service.Reserve(context.Background(), uuid.New(),
		[]domain.ReservationLine{{SKU: "sku-1", Quantity: 4}})

	expiredRes, err := f.service.Expire(context.Background(), reservation.ReservationID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if expiredRes.Status != domain.ReservationExpired {
		t.Errorf("Expected EXPIRED, got %s", expiredRes.Status)
	}
	if available, reserved := f.available(t, "sku-1"); available != 5 || reserved != 0 {
		t.Errorf("Expected available=5 reserved=0, got available=%d reserved=%d", available, reserved)
	}

	// 再次过期是空操作
	if _, err := f.service.Expire(context.Background(), reservation.ReservationID); err != nil {
		t.Fatalf("Expected idempotent expire, got: %v", err)
	}
	if available, _ := f.available(t, "sku-1"); available != 5 {
		t.Errorf("Expected available=5, got %d", available)
	}
}
