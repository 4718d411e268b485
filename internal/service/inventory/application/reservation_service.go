// internal/service/inventory/application/reservation_service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"marketplace/internal/pkg/logger"

	"marketplace/internal/service/inventory/domain"
	"marketplace/internal/service/inventory/domain/port"
)

// 预留相关的领域事件类型
const (
	EventStockReserved        = "StockReserved"
	EventReservationConfirmed = "ReservationConfirmed"
	EventReservationReleased  = "ReservationReleased"
	EventReservationExpired   = "ReservationExpired"
)

// ReservationAPI 是预留控制面的入站端口，
// 供 HTTP 接口层、后台清理任务以及插桩装饰器使用
type ReservationAPI interface {
	Reserve(ctx context.Context, orderID uuid.UUID, lines []domain.ReservationLine) (*domain.Reservation, error)
	Confirm(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error)
	Release(ctx context.Context, reservationID uuid.UUID, reason string) (*domain.Reservation, error)
	Expire(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error)
	Get(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error)
}

// ReservationService 管理预留的完整生命周期。
// 库存数量的串行化交给 StockService，本服务只负责
// 预留状态机的幂等流转和事件发布。
type ReservationService struct {
	reservations domain.ReservationRepository
	stock        *StockService
	events       port.EventPublisher // 可为 nil
	ttl          time.Duration
	now          func() time.Time
}

func NewReservationService(reservations domain.ReservationRepository, stock *StockService, events port.EventPublisher, ttl time.Duration) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		stock:        stock,
		events:       events,
		ttl:          ttl,
		now:          time.Now,
	}
}

var _ ReservationAPI = (*ReservationService)(nil)

// Reserve 为订单创建预留，按 orderID 幂等：
// 订单已有预留时原样返回，不会重复扣减库存。
func (s *ReservationService) Reserve(ctx context.Context, orderID uuid.UUID, lines []domain.ReservationLine) (*domain.Reservation, error) {
	if existing, err := s.reservations.FindByOrderID(ctx, orderID); err == nil {
		logger.Ctx(ctx).Info().
			Str("order_id", orderID.String()).
			Str("reservation_id", existing.ReservationID.String()).
			Msg("reservation already exists for order, returning as-is")
		return existing, nil
	} else if err != domain.ErrReservationNotFound {
		return nil, err
	}

	// 重复 SKU 的行先合并，预留行表按 (reservation, sku) 唯一
	lines = domain.MergeLines(lines)
	reservation := domain.NewReservation(orderID, lines, s.now().Add(s.ttl))

	if err := s.stock.Reserve(ctx, lines, &reservation.ReservationID, "Stock reserved for order "+orderID.String()); err != nil {
		return nil, err
	}

	if err := s.reservations.Save(ctx, reservation); err != nil {
		// 预留记录落库失败时把已扣的库存补回去，不留下无主的预占量
		if relErr := s.stock.Release(ctx, lines, &reservation.ReservationID, "reservation persist failed"); relErr != nil {
			logger.Ctx(ctx).Error().Err(relErr).
				Str("reservation_id", reservation.ReservationID.String()).
				Msg("failed to return stock after reservation persist failure")
		}
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("reservation_id", reservation.ReservationID.String()).
		Str("order_id", orderID.String()).
		Time("expires_at", reservation.ExpiresAt).
		Msg("stock reservation created")

	s.publish(ctx, reservation, EventStockReserved, nil)
	return reservation, nil
}

// Confirm 把 ACTIVE 预留确认为 CONFIRMED，预占量转为已消耗。
// 重复确认是幂等空操作；对 RELEASED/EXPIRED 的预留返回 ReservationNotActiveError。
func (s *ReservationService) Confirm(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	reservation, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status == domain.ReservationConfirmed {
		return reservation, nil
	}

	if err := reservation.Confirm(s.now()); err != nil {
		return nil, err
	}

	if err := s.stock.Finalize(ctx, reservation.Lines, &reservation.ReservationID, "Reservation confirmed for order "+reservation.OrderID.String()); err != nil {
		return nil, err
	}

	if err := s.reservations.Save(ctx, reservation); err != nil {
		// 确认状态落库失败时把已消耗的量补回预占，预留仍是 ACTIVE，可以重试
		if undoErr := s.stock.Reinstate(ctx, reservation.Lines, &reservation.ReservationID, "reservation confirm persist failed"); undoErr != nil {
			logger.Ctx(ctx).Error().Err(undoErr).
				Str("reservation_id", reservationID.String()).
				Msg("failed to reinstate stock after confirm persist failure")
		}
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("reservation_id", reservationID.String()).
		Str("order_id", reservation.OrderID.String()).
		Msg("reservation confirmed")

	s.publish(ctx, reservation, EventReservationConfirmed, nil)
	return reservation, nil
}

// Release 主动释放预留，预占量回到可用。
// 预留已不是 ACTIVE 时是幂等空操作。
func (s *ReservationService) Release(ctx context.Context, reservationID uuid.UUID, reason string) (*domain.Reservation, error) {
	return s.deactivate(ctx, reservationID, reason, false)
}

// Expire 把超时的预留标记为 EXPIRED 并归还库存，语义同 Release
func (s *ReservationService) Expire(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	return s.deactivate(ctx, reservationID, "Reservation expired", true)
}

func (s *ReservationService) Get(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	return s.reservations.FindByID(ctx, reservationID)
}

func (s *ReservationService) deactivate(ctx context.Context, reservationID uuid.UUID, reason string, expired bool) (*domain.Reservation, error) {
	reservation, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	var changed bool
	if expired {
		changed = reservation.Expire()
	} else {
		changed = reservation.Release()
	}
	if !changed {
		// 状态已终结，重复调用安全
		logger.Ctx(ctx).Debug().
			Str("reservation_id", reservationID.String()).
			Str("status", string(reservation.Status)).
			Msg("reservation not active, skipping")
		return reservation, nil
	}

	if err := s.stock.Release(ctx, reservation.Lines, &reservation.ReservationID, reason); err != nil {
		return nil, err
	}

	if err := s.reservations.Save(ctx, reservation); err != nil {
		// 状态落库失败时把刚归还的量重新预占，预留仍是 ACTIVE，可以重试
		if undoErr := s.stock.Reserve(ctx, reservation.Lines, &reservation.ReservationID, "reservation release persist failed"); undoErr != nil {
			logger.Ctx(ctx).Error().Err(undoErr).
				Str("reservation_id", reservationID.String()).
				Msg("failed to re-reserve stock after release persist failure")
		}
		return nil, err
	}

	eventType := EventReservationReleased
	if expired {
		eventType = EventReservationExpired
	}
	logger.Ctx(ctx).Info().
		Str("reservation_id", reservationID.String()).
		Str("order_id", reservation.OrderID.String()).
		Str("reason", reason).
		Msgf("reservation %s", string(reservation.Status))

	s.publish(ctx, reservation, eventType, map[string]any{"reason": reason})
	return reservation, nil
}

func (s *ReservationService) publish(ctx context.Context, r *domain.Reservation, eventType string, extra map[string]any) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"reservationId": r.ReservationID.String(),
		"orderId":       r.OrderID.String(),
		"status":        string(r.Status),
		"expiresAt":     r.ExpiresAt,
	}
	lines := make([]map[string]any, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, map[string]any{"sku": line.SKU, "quantity": line.Quantity})
	}
	payload["lines"] = lines
	for k, v := range extra {
		payload[k] = v
	}

	if err := s.events.Publish(ctx, r.ReservationID, eventType, payload); err != nil {
		// 事件流不可用不应让预留操作失败，事实已经落库
		logger.Ctx(ctx).Error().Err(err).
			Str("reservation_id", r.ReservationID.String()).
			Str("event_type", eventType).
			Msg("failed to publish reservation event")
	}
}
