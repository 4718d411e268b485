// internal/service/inventory/application/reaper.go
package application

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/inventory/domain"
)

// Reaper 周期性地把超过 TTL 仍未确认的预留过期掉，归还库存。
// 每条预留独立处理：单条失败只记日志和指标，不影响同批其它预留。
// Expire 本身幂等，崩溃后重跑同一批是安全的。
type Reaper struct {
	reservations domain.ReservationRepository
	api          ReservationAPI
	batchSize    int

	expiredTotal prometheus.Counter
	failedTotal  prometheus.Counter
}

func NewReaper(reservations domain.ReservationRepository, api ReservationAPI, batchSize int, reg prometheus.Registerer) *Reaper {
	factory := promauto.With(reg)
	return &Reaper{
		reservations: reservations,
		api:          api,
		batchSize:    batchSize,
		expiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reservations_expired_total",
			Help: "Number of reservations expired by the cleanup sweep.",
		}),
		failedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reservation_expiry_failures_total",
			Help: "Number of reservations the cleanup sweep failed to expire.",
		}),
	}
}

// Sweep 执行一轮过期清理
func (r *Reaper) Sweep(ctx context.Context) {
	now := time.Now()

	expired, err := r.reservations.FindExpired(ctx, now, r.batchSize)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to load expired reservations")
		return
	}
	if len(expired) == 0 {
		logger.Ctx(ctx).Debug().Msg("no expired reservations to clean up")
		return
	}

	logger.Ctx(ctx).Info().Int("count", len(expired)).Msg("found expired reservations to clean up")

	successCount := 0
	failureCount := 0
	for _, reservation := range expired {
		if _, err := r.api.Expire(ctx, reservation.ReservationID); err != nil {
			failureCount++
			r.failedTotal.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("reservation_id", reservation.ReservationID.String()).
				Str("order_id", reservation.OrderID.String()).
				Msg("failed to expire reservation")
			continue
		}
		successCount++
		r.expiredTotal.Inc()
		logger.Ctx(ctx).Info().
			Str("reservation_id", reservation.ReservationID.String()).
			Str("order_id", reservation.OrderID.String()).
			Msg("expired reservation")
	}

	logger.Ctx(ctx).Info().
		Int("succeeded", successCount).
		Int("failed", failureCount).
		Msg("reservation cleanup completed")
}
