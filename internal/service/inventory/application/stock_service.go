// internal/service/inventory/application/stock_service.go
package application

import (
	"context"

	"github.com/google/uuid"
	"marketplace/internal/pkg/logger"

	"marketplace/internal/pkg/lock"
	"marketplace/internal/service/inventory/domain"
	"marketplace/internal/service/inventory/domain/port"
)

const movementActor = "System"

// StockService 是库存账本。所有数量变更都在按 SKU 排序获取的
// 互斥租约下进行：同一 SKU 的并发调用者串行化，不同 SKU 互不阻塞。
// 多行请求要么全部成功要么全不生效。
type StockService struct {
	stocks    domain.StockRepository
	movements domain.MovementRepository
	locker    lock.Locker
	cache     port.AvailabilityCache // 可为 nil
}

func NewStockService(stocks domain.StockRepository, movements domain.MovementRepository, locker lock.Locker, cache port.AvailabilityCache) *StockService {
	return &StockService{stocks: stocks, movements: movements, locker: locker, cache: cache}
}

// Reserve 对一批行执行可用->预占的转移。
// 先拿齐所有 SKU 的锁再做校验，任何一行可用不足都会让整批失败且状态不变。
func (s *StockService) Reserve(ctx context.Context, lines []domain.ReservationLine, reservationID *uuid.UUID, note string) error {
	return s.mutate(ctx, lines, reservationID, domain.MovementReserve, note, func(item *domain.StockItem, qty int) error {
		return item.Reserve(qty)
	})
}

// Release 把一批预占行归还为可用
func (s *StockService) Release(ctx context.Context, lines []domain.ReservationLine, reservationID *uuid.UUID, note string) error {
	return s.mutate(ctx, lines, reservationID, domain.MovementRelease, note, func(item *domain.StockItem, qty int) error {
		return item.ReleaseReservation(qty)
	})
}

// Finalize 把一批预占行转为已消耗（确认扣减，总量下降）
func (s *StockService) Finalize(ctx context.Context, lines []domain.ReservationLine, reservationID *uuid.UUID, note string) error {
	return s.mutate(ctx, lines, reservationID, domain.MovementFinalize, note, func(item *domain.StockItem, qty int) error {
		return item.Finalize(qty)
	})
}

// Reinstate 把一批已消耗的行重新计回预占，
// 是 Finalize 的逆操作，用于确认落库失败后的回滚
func (s *StockService) Reinstate(ctx context.Context, lines []domain.ReservationLine, reservationID *uuid.UUID, note string) error {
	return s.mutate(ctx, lines, reservationID, domain.MovementReinstate, note, func(item *domain.StockItem, qty int) error {
		return item.Reinstate(qty)
	})
}

// TryDecrement 是单 SKU 的便捷入口
func (s *StockService) TryDecrement(ctx context.Context, sku string, qty int) error {
	return s.Reserve(ctx, []domain.ReservationLine{{SKU: sku, Quantity: qty}}, nil, "direct decrement")
}

// Increment 是单 SKU 的补货入口
func (s *StockService) Increment(ctx context.Context, sku string, qty int) error {
	unlock, err := s.locker.Lock(sku)
	if err != nil {
		return err
	}
	defer unlock.Unlock()

	item, err := s.stocks.FindBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if err := item.Restock(qty); err != nil {
		return err
	}
	if err := s.stocks.Save(ctx, item); err != nil {
		return err
	}
	s.recordMovement(ctx, sku, domain.MovementRestock, qty, nil, "restock")
	s.invalidateCache(ctx, sku)
	return nil
}

// Availability 查询 SKU 的可用量，优先走缓存
func (s *StockService) Availability(ctx context.Context, sku string) (int, error) {
	if s.cache != nil {
		if available, ok, err := s.cache.Get(ctx, sku); err == nil && ok {
			return available, nil
		}
	}

	item, err := s.stocks.FindBySKU(ctx, sku)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, sku, item.AvailableQty); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("sku", sku).Msg("failed to populate availability cache")
		}
	}
	return item.AvailableQty, nil
}

// mutate 统一实现多行批量变更：排序加锁 -> 全量加载 -> 全量校验 -> 全量落库。
// 校验阶段失败时没有任何一行被写回，保证全有或全无。
func (s *StockService) mutate(ctx context.Context, lines []domain.ReservationLine, reservationID *uuid.UUID,
	movementType domain.MovementType, note string, apply func(*domain.StockItem, int) error) error {

	if len(lines) == 0 {
		return nil
	}

	// 同一 SKU 出现多行时先合并成一行，否则每行各自加载一份快照，
	// 校验都针对原始行，后写覆盖先写，账本会少记
	lines = domain.MergeLines(lines)

	skus := make([]string, 0, len(lines))
	for _, line := range lines {
		skus = append(skus, line.SKU)
	}

	unlock, err := lock.LockAll(s.locker, skus)
	if err != nil {
		return err
	}
	defer unlock.Unlock()

	// 先全部加载并在内存中变更，任何一行失败都直接返回，不写任何东西
	items := make([]*domain.StockItem, len(lines))
	for i, line := range lines {
		item, err := s.stocks.FindBySKU(ctx, line.SKU)
		if err != nil {
			return err
		}
		if err := apply(item, line.Quantity); err != nil {
			return err
		}
		items[i] = item
	}

	for i, item := range items {
		if err := s.stocks.Save(ctx, item); err != nil {
			// 持久化中途失败：尽力回滚已写回的行，保持账本一致
			s.rollbackSaved(ctx, lines[:i], movementType)
			return err
		}
	}

	for _, line := range lines {
		s.recordMovement(ctx, line.SKU, movementType, line.Quantity, reservationID, note)
		s.invalidateCache(ctx, line.SKU)
	}
	return nil
}

func (s *StockService) rollbackSaved(ctx context.Context, saved []domain.ReservationLine, movementType domain.MovementType) {
	for _, line := range saved {
		item, err := s.stocks.FindBySKU(ctx, line.SKU)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("sku", line.SKU).Msg("rollback load failed, ledger may need reconciliation")
			continue
		}
		var undoErr error
		switch movementType {
		case domain.MovementReserve:
			undoErr = item.ReleaseReservation(line.Quantity)
		case domain.MovementRelease:
			undoErr = item.Reserve(line.Quantity)
		case domain.MovementFinalize:
			item.ReservedQty += line.Quantity
		case domain.MovementReinstate:
			undoErr = item.Finalize(line.Quantity)
		}
		if undoErr == nil {
			undoErr = s.stocks.Save(ctx, item)
		}
		if undoErr != nil {
			logger.Ctx(ctx).Error().Err(undoErr).Str("sku", line.SKU).Msg("rollback failed, ledger may need reconciliation")
		}
	}
}

func (s *StockService) recordMovement(ctx context.Context, sku string, t domain.MovementType, qty int, reservationID *uuid.UUID, note string) {
	m := domain.NewStockMovement(sku, t, qty, reservationID, movementActor, note)
	if err := s.movements.Record(ctx, m); err != nil {
		// 审计记录失败不影响主流程
		logger.Ctx(ctx).Warn().Err(err).Str("sku", sku).Str("type", string(t)).Msg("failed to record stock movement")
	}
}

func (s *StockService) invalidateCache(ctx context.Context, sku string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, sku); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("sku", sku).Msg("failed to invalidate availability cache")
	}
}
