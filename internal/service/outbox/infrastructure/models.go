// internal/service/outbox/infrastructure/models.go
package infrastructure

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"marketplace/internal/service/outbox/domain"
)

// DomainEventModel 是出站表的 GORM 模型。
// (aggregate_id, sequence_number) 唯一，兜底拦截并发下的序列号冲突。
type DomainEventModel struct {
	ID             uint       `gorm:"primaryKey"`
	EventID        string     `gorm:"type:char(36);uniqueIndex:uniq_event_id"`
	AggregateID    string     `gorm:"type:char(36);uniqueIndex:uniq_agg_seq;index:idx_aggregate"`
	EventType      string     `gorm:"type:varchar(64)"`
	SequenceNumber int64      `gorm:"uniqueIndex:uniq_agg_seq"`
	Payload        string     `gorm:"type:json"`
	CreatedAt      time.Time  `gorm:"index:idx_delivered,priority:2"`
	Delivered      bool       `gorm:"index:idx_delivered,priority:1"`
	DeliveredAt    *time.Time `gorm:""`
}

func (DomainEventModel) TableName() string {
	return "outbox_events"
}

func toEventModel(event *domain.DomainEvent) (*DomainEventModel, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal payload of event %s failed", event.EventID)
	}
	return &DomainEventModel{
		EventID:        event.EventID.String(),
		AggregateID:    event.AggregateID.String(),
		EventType:      event.EventType,
		SequenceNumber: event.SequenceNumber,
		Payload:        string(payload),
		CreatedAt:      event.CreatedAt,
		Delivered:      event.Delivered,
		DeliveredAt:    event.DeliveredAt,
	}, nil
}

func toDomainEvent(model *DomainEventModel) (*domain.DomainEvent, error) {
	eventID, err := uuid.Parse(model.EventID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse event id %q failed", model.EventID)
	}
	aggregateID, err := uuid.Parse(model.AggregateID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse aggregate id %q failed", model.AggregateID)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(model.Payload), &payload); err != nil {
		return nil, errors.Wrapf(err, "unmarshal payload of event %s failed", model.EventID)
	}
	return &domain.DomainEvent{
		EventID:        eventID,
		AggregateID:    aggregateID,
		EventType:      model.EventType,
		SequenceNumber: model.SequenceNumber,
		Payload:        payload,
		CreatedAt:      model.CreatedAt,
		Delivered:      model.Delivered,
		DeliveredAt:    model.DeliveredAt,
	}, nil
}
