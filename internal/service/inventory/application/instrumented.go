// internal/service/inventory/application/instrumented.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/inventory/domain"
)

// InstrumentedReservationService 是 ReservationAPI 的装饰器，
// 给每个公开操作包上 Span、耗时日志和 Prometheus 直方图。
// 横切关注点集中在这里，业务服务保持干净。
type InstrumentedReservationService struct {
	next     ReservationAPI
	tracer   trace.Tracer
	duration *prometheus.HistogramVec
}

func NewInstrumentedReservationService(next ReservationAPI, tracer trace.Tracer, reg prometheus.Registerer) *InstrumentedReservationService {
	return &InstrumentedReservationService{
		next:   next,
		tracer: tracer,
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inventory_reservation_operation_duration_seconds",
			Help:    "Duration of reservation control-surface operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
}

var _ ReservationAPI = (*InstrumentedReservationService)(nil)

func (s *InstrumentedReservationService) Reserve(ctx context.Context, orderID uuid.UUID, lines []domain.ReservationLine) (*domain.Reservation, error) {
	ctx, finish := s.begin(ctx, "Reserve", attribute.String("order.id", orderID.String()))
	r, err := s.next.Reserve(ctx, orderID, lines)
	finish(err)
	return r, err
}

func (s *InstrumentedReservationService) Confirm(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	ctx, finish := s.begin(ctx, "Confirm", attribute.String("reservation.id", reservationID.String()))
	r, err := s.next.Confirm(ctx, reservationID)
	finish(err)
	return r, err
}

func (s *InstrumentedReservationService) Release(ctx context.Context, reservationID uuid.UUID, reason string) (*domain.Reservation, error) {
	ctx, finish := s.begin(ctx, "Release", attribute.String("reservation.id", reservationID.String()))
	r, err := s.next.Release(ctx, reservationID, reason)
	finish(err)
	return r, err
}

func (s *InstrumentedReservationService) Expire(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	ctx, finish := s.begin(ctx, "Expire", attribute.String("reservation.id", reservationID.String()))
	r, err := s.next.Expire(ctx, reservationID)
	finish(err)
	return r, err
}

func (s *InstrumentedReservationService) Get(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	ctx, finish := s.begin(ctx, "Get", attribute.String("reservation.id", reservationID.String()))
	r, err := s.next.Get(ctx, reservationID)
	finish(err)
	return r, err
}

func (s *InstrumentedReservationService) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "reservation."+operation)
	span.SetAttributes(attrs...)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Ctx(ctx).Warn().Err(err).
				Str("operation", operation).
				Dur("elapsed", elapsed).
				Msg("reservation operation failed")
		} else {
			logger.Ctx(ctx).Debug().
				Str("operation", operation).
				Dur("elapsed", elapsed).
				Msg("reservation operation completed")
		}
		s.duration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
		span.End()
	}
}
