// internal/service/outbox/application/redelivery.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/outbox/domain"
)

// Redelivery 周期性补投落库成功但未上总线的事件。
// 未投递事件按序列号升序处理；同一聚合内一旦失败，
// 跳过该聚合后续事件，避免乱序上总线。
type Redelivery struct {
	events    domain.EventRepository
	transport domain.Transport
	batchSize int

	redeliveredTotal prometheus.Counter
	failedTotal      prometheus.Counter
}

func NewRedelivery(events domain.EventRepository, transport domain.Transport, batchSize int, reg prometheus.Registerer) *Redelivery {
	factory := promauto.With(reg)
	return &Redelivery{
		events:    events,
		transport: transport,
		batchSize: batchSize,
		redeliveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_redelivered_total",
			Help: "Number of undelivered events successfully redelivered.",
		}),
		failedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_redelivery_failures_total",
			Help: "Number of redelivery attempts that failed.",
		}),
	}
}

// Sweep 执行一轮补投
func (r *Redelivery) Sweep(ctx context.Context) {
	pending, err := r.events.ListUndelivered(ctx, r.batchSize)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("list undelivered events failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	skipped := make(map[uuid.UUID]bool)
	for _, event := range pending {
		if skipped[event.AggregateID] {
			continue
		}
		if err := r.transport.Send(ctx, event); err != nil {
			r.failedTotal.Inc()
			skipped[event.AggregateID] = true
			logger.Ctx(ctx).Warn().Err(err).
				Str("event_id", event.EventID.String()).
				Str("aggregate_id", event.AggregateID.String()).
				Int64("sequence", event.SequenceNumber).
				Msg("event redelivery failed, skipping rest of aggregate")
			continue
		}
		now := time.Now()
		if err := r.events.MarkDelivered(ctx, event.EventID, now); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("event_id", event.EventID.String()).
				Msg("mark delivered failed after redelivery")
		}
		event.MarkDelivered(now)
		r.redeliveredTotal.Inc()
	}
}
