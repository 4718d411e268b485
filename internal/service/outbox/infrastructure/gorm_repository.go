// internal/service/outbox/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"marketplace/internal/service/outbox/domain"
)

const mysqlDuplicateEntry = 1062

// GormEventRepository 是出站表的 MySQL 实现
type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

var _ domain.EventRepository = (*GormEventRepository)(nil)

func (r *GormEventRepository) Append(ctx context.Context, event *domain.DomainEvent) error {
	model, err := toEventModel(event)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateEntry(err) {
			return &domain.DuplicateEventError{EventID: event.EventID}
		}
		return errors.Wrapf(err, "append event %s failed", event.EventID)
	}
	return nil
}

func (r *GormEventRepository) MaxSequence(ctx context.Context, aggregateID uuid.UUID) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&DomainEventModel{}).
		Where("aggregate_id = ?", aggregateID.String()).
		Select("COALESCE(MAX(sequence_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, errors.Wrapf(err, "query max sequence of aggregate %s failed", aggregateID)
	}
	return max, nil
}

func (r *GormEventRepository) ListUndelivered(ctx context.Context, limit int) ([]*domain.DomainEvent, error) {
	var models []*DomainEventModel
	err := r.db.WithContext(ctx).
		Where("delivered = ?", false).
		Order("aggregate_id, sequence_number ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list undelivered events failed")
	}

	events := make([]*domain.DomainEvent, 0, len(models))
	for _, model := range models {
		event, err := toDomainEvent(model)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *GormEventRepository) CountUndeliveredBefore(ctx context.Context, aggregateID uuid.UUID, sequence int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&DomainEventModel{}).
		Where("aggregate_id = ? AND sequence_number < ? AND delivered = ?", aggregateID.String(), sequence, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrapf(err, "count undelivered events of aggregate %s failed", aggregateID)
	}
	return count, nil
}

func (r *GormEventRepository) MarkDelivered(ctx context.Context, eventID uuid.UUID, deliveredAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&DomainEventModel{}).
		Where("event_id = ?", eventID.String()).
		Updates(map[string]any{"delivered": true, "delivered_at": deliveredAt}).Error
	return errors.Wrapf(err, "mark event %s delivered failed", eventID)
}

func isDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
