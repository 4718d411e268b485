// internal/service/auth/application/orphan_worker.go
package application

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/auth/domain"
	"marketplace/internal/service/auth/domain/port"
)

// OrphanWorker 周期性重试删除孤儿档案。
// 每条记录独立处理，单条失败不影响同批其余记录；
// 重试次数达到上限后转入 FAILED 终态，不再尝试。
type OrphanWorker struct {
	orphans  domain.OrphanRepository
	profiles port.ProfileService
	maxRetry int

	cleanedTotal prometheus.Counter
	failedTotal  prometheus.Counter
}

func NewOrphanWorker(orphans domain.OrphanRepository, profiles port.ProfileService, maxRetry int, reg prometheus.Registerer) *OrphanWorker {
	factory := promauto.With(reg)
	return &OrphanWorker{
		orphans:  orphans,
		profiles: profiles,
		maxRetry: maxRetry,
		cleanedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_orphans_cleaned_total",
			Help: "Number of orphan profiles successfully deleted.",
		}),
		failedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_orphans_failed_total",
			Help: "Number of orphan records moved to the FAILED terminal state.",
		}),
	}
}

// Sweep 执行一轮孤儿清理
func (w *OrphanWorker) Sweep(ctx context.Context) {
	pending, err := w.orphans.FindPending(ctx, 100)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("list pending orphan records failed")
		return
	}
	if len(pending) == 0 {
		return
	}
	logger.Ctx(ctx).Info().Int("count", len(pending)).Msg("orphan cleanup sweep started")

	for _, record := range pending {
		w.process(ctx, record)
	}
}

func (w *OrphanWorker) process(ctx context.Context, record *domain.OrphanRecord) {
	if err := w.profiles.DeleteProfile(ctx, record.UserID); err != nil {
		record.IncrementRetry(err.Error())
		if record.RetryCount >= w.maxRetry {
			record.MarkFailed()
			w.failedTotal.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("orphan_id", record.ID.String()).
				Str("user_id", record.UserID.String()).
				Int("retries", record.RetryCount).
				Msg("orphan cleanup exhausted retries, manual intervention required")
		} else {
			logger.Ctx(ctx).Warn().Err(err).
				Str("orphan_id", record.ID.String()).
				Int("retries", record.RetryCount).
				Msg("orphan cleanup attempt failed")
		}
		if saveErr := w.orphans.Save(ctx, record); saveErr != nil {
			logger.Ctx(ctx).Error().Err(saveErr).
				Str("orphan_id", record.ID.String()).
				Msg("save orphan record failed")
		}
		return
	}

	record.MarkCompleted()
	if err := w.orphans.Save(ctx, record); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("orphan_id", record.ID.String()).
			Msg("save orphan record failed")
		return
	}
	w.cleanedTotal.Inc()
	logger.Ctx(ctx).Info().
		Str("orphan_id", record.ID.String()).
		Str("user_id", record.UserID.String()).
		Msg("orphan profile cleaned up")
}
