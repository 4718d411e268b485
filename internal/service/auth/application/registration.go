// internal/service/auth/application/registration.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/auth/domain"
	"marketplace/internal/service/auth/domain/port"
)

// RegistrationMetrics 统计注册事务的结果分布
type RegistrationMetrics struct {
	succeeded   prometheus.Counter
	duplicates  prometheus.Counter
	compensated prometheus.Counter
	orphaned    prometheus.Counter
	duration    prometheus.Histogram
}

func NewRegistrationMetrics(reg prometheus.Registerer) *RegistrationMetrics {
	factory := promauto.With(reg)
	return &RegistrationMetrics{
		succeeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Number of successful registrations.",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_registration_duplicates_total",
			Help: "Number of registrations rejected for duplicate email.",
		}),
		compensated: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_registration_compensations_total",
			Help: "Number of registrations rolled back after a local failure.",
		}),
		orphaned: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_registration_orphans_total",
			Help: "Number of orphan profile records created after failed compensation.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_registration_duration_seconds",
			Help:    "Registration latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RegistrationResult 返回给接入层的注册结果
type RegistrationResult struct {
	UserID uuid.UUID
	Email  string
}

// RegistrationService 编排跨服务的注册事务：
// 先在下游用户档案服务建档，再落本地凭证；
// 凭证落库失败时同步补偿删除档案，补偿也失败就落一条孤儿记录。
type RegistrationService struct {
	credentials domain.CredentialRepository
	orphans     domain.OrphanRepository
	profiles    port.ProfileService
	metrics     *RegistrationMetrics
}

func NewRegistrationService(
	credentials domain.CredentialRepository,
	orphans domain.OrphanRepository,
	profiles port.ProfileService,
	metrics *RegistrationMetrics,
) *RegistrationService {
	return &RegistrationService{
		credentials: credentials,
		orphans:     orphans,
		profiles:    profiles,
		metrics:     metrics,
	}
}

// Register 执行注册事务
func (s *RegistrationService) Register(ctx context.Context, email, password, displayName string) (*RegistrationResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.duration.Observe(time.Since(start).Seconds())
	}()

	if _, err := s.credentials.FindByEmail(ctx, email); err == nil {
		s.metrics.duplicates.Inc()
		return nil, &domain.DuplicateEmailError{Email: email}
	} else if !errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password failed")
	}

	userID := uuid.New()
	if err := s.profiles.CreateProfile(ctx, userID, email, displayName); err != nil {
		return nil, &domain.CollaboratorUnavailableError{Cause: err}
	}

	credential := domain.NewCredential(userID, email, string(hash))
	if err := s.credentials.Save(ctx, credential); err != nil {
		s.compensate(ctx, userID, email, err)
		return nil, errors.Wrap(err, "save credential failed")
	}

	s.metrics.succeeded.Inc()
	logger.Ctx(ctx).Info().
		Str("user_id", userID.String()).
		Str("email", email).
		Msg("registration completed")
	return &RegistrationResult{UserID: userID, Email: email}, nil
}

// compensate 回滚已经建好的下游档案。
// 删除失败时落一条 PENDING 孤儿记录，交给后台任务继续清理。
func (s *RegistrationService) compensate(ctx context.Context, userID uuid.UUID, email string, cause error) {
	s.metrics.compensated.Inc()
	logger.Ctx(ctx).Warn().Err(cause).
		Str("user_id", userID.String()).
		Msg("registration failed after profile creation, compensating")

	err := s.profiles.DeleteProfile(ctx, userID)
	if err == nil {
		return
	}

	record := domain.NewOrphanRecord(userID, email, err.Error())
	if saveErr := s.orphans.Save(ctx, record); saveErr != nil {
		// 孤儿记录也落不下去，只能靠日志追查
		logger.Ctx(ctx).Error().Err(saveErr).
			Str("user_id", userID.String()).
			Msg("save orphan record failed, manual cleanup required")
		return
	}
	s.metrics.orphaned.Inc()
	logger.Ctx(ctx).Warn().Err(err).
		Str("user_id", userID.String()).
		Str("orphan_id", record.ID.String()).
		Msg("profile compensation failed, orphan record created")
}
