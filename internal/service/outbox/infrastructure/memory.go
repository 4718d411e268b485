// internal/service/outbox/infrastructure/memory.go
package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/service/outbox/domain"
)

// MemoryEventRepository 是出站表的内存实现，用于测试与本地运行
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []*domain.DomainEvent
	byID   map[uuid.UUID]*domain.DomainEvent
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{byID: make(map[uuid.UUID]*domain.DomainEvent)}
}

var _ domain.EventRepository = (*MemoryEventRepository)(nil)

func (r *MemoryEventRepository) Append(_ context.Context, event *domain.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[event.EventID]; exists {
		return &domain.DuplicateEventError{EventID: event.EventID}
	}
	stored := copyEvent(event)
	r.events = append(r.events, stored)
	r.byID[event.EventID] = stored
	return nil
}

func (r *MemoryEventRepository) MaxSequence(_ context.Context, aggregateID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var max int64
	for _, event := range r.events {
		if event.AggregateID == aggregateID && event.SequenceNumber > max {
			max = event.SequenceNumber
		}
	}
	return max, nil
}

func (r *MemoryEventRepository) ListUndelivered(_ context.Context, limit int) ([]*domain.DomainEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*domain.DomainEvent
	for _, event := range r.events {
		if !event.Delivered {
			pending = append(pending, copyEvent(event))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].AggregateID != pending[j].AggregateID {
			return pending[i].AggregateID.String() < pending[j].AggregateID.String()
		}
		return pending[i].SequenceNumber < pending[j].SequenceNumber
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *MemoryEventRepository) CountUndeliveredBefore(_ context.Context, aggregateID uuid.UUID, sequence int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, event := range r.events {
		if event.AggregateID == aggregateID && !event.Delivered && event.SequenceNumber < sequence {
			count++
		}
	}
	return count, nil
}

func (r *MemoryEventRepository) MarkDelivered(_ context.Context, eventID uuid.UUID, deliveredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event, ok := r.byID[eventID]; ok {
		event.MarkDelivered(deliveredAt)
	}
	return nil
}

// Events 返回出站表快照，测试用
func (r *MemoryEventRepository) Events() []*domain.DomainEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*domain.DomainEvent, 0, len(r.events))
	for _, event := range r.events {
		snapshot = append(snapshot, copyEvent(event))
	}
	return snapshot
}

func copyEvent(event *domain.DomainEvent) *domain.DomainEvent {
	copied := *event
	if event.Payload != nil {
		copied.Payload = make(map[string]any, len(event.Payload))
		for k, v := range event.Payload {
			copied.Payload[k] = v
		}
	}
	if event.DeliveredAt != nil {
		at := *event.DeliveredAt
		copied.DeliveredAt = &at
	}
	return &copied
}
