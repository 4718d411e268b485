// internal/service/outbox/domain/event.go
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent 是写入出站表的一条领域事件。
// 同一聚合下 SequenceNumber 严格递增，消费端据此去重与排序。
type DomainEvent struct {
	EventID        uuid.UUID
	AggregateID    uuid.UUID
	EventType      string
	SequenceNumber int64
	Payload        map[string]any
	CreatedAt      time.Time
	Delivered      bool
	DeliveredAt    *time.Time
}

// NewDomainEvent 分配 EventID 并打上创建时间，SequenceNumber 由序列器填充
func NewDomainEvent(aggregateID uuid.UUID, eventType string, payload map[string]any) *DomainEvent {
	return &DomainEvent{
		EventID:     uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
}

// MarkDelivered 记录投递成功的时刻
func (e *DomainEvent) MarkDelivered(now time.Time) {
	e.Delivered = true
	e.DeliveredAt = &now
}

// DuplicateEventError 表示 EventID 已经写入过出站表
type DuplicateEventError struct {
	EventID uuid.UUID
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("event %s already recorded", e.EventID)
}

// EventRepository 是出站表的持久化端口。
// Append 对重复 EventID 必须返回 DuplicateEventError。
type EventRepository interface {
	Append(ctx context.Context, event *DomainEvent) error
	MaxSequence(ctx context.Context, aggregateID uuid.UUID) (int64, error)
	ListUndelivered(ctx context.Context, limit int) ([]*DomainEvent, error)
	// CountUndeliveredBefore 统计同一聚合中序列号小于 sequence 且尚未投递的事件数
	CountUndeliveredBefore(ctx context.Context, aggregateID uuid.UUID, sequence int64) (int64, error)
	MarkDelivered(ctx context.Context, eventID uuid.UUID, deliveredAt time.Time) error
}

// Transport 把事件送上消息总线，按 AggregateID 分区保证聚合内有序
type Transport interface {
	Send(ctx context.Context, event *DomainEvent) error
}
