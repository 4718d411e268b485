// internal/service/outbox/application/sequencer.go
package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/outbox/domain"
)

// Sequencer 实现事务性出站：先落库、再投递。
// 每个聚合一个单调递增的序列计数器，首次使用时从出站表的最大序列号播种，
// 序列号只在落库成功后推进，保证不会出现空洞。
type Sequencer struct {
	events    domain.EventRepository
	transport domain.Transport

	mu       sync.Mutex
	counters map[uuid.UUID]int64
	seeded   map[uuid.UUID]bool
}

func NewSequencer(events domain.EventRepository, transport domain.Transport) *Sequencer {
	return &Sequencer{
		events:    events,
		transport: transport,
		counters:  make(map[uuid.UUID]int64),
		seeded:    make(map[uuid.UUID]bool),
	}
}

// Publish 把事件编号、落库并尝试投递。
// 落库失败时事件不会出现在总线上；投递失败只记日志，
// 事件已持久化，等待补投任务重试。
func (s *Sequencer) Publish(ctx context.Context, aggregateID uuid.UUID, eventType string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded[aggregateID] {
		max, err := s.events.MaxSequence(ctx, aggregateID)
		if err != nil {
			return err
		}
		s.counters[aggregateID] = max
		s.seeded[aggregateID] = true
	}

	event := domain.NewDomainEvent(aggregateID, eventType, payload)
	event.SequenceNumber = s.counters[aggregateID] + 1

	if err := s.events.Append(ctx, event); err != nil {
		return err
	}
	s.counters[aggregateID] = event.SequenceNumber

	// 投递在锁内进行，保证同一聚合按序列号顺序上总线
	if err := s.deliver(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("event_id", event.EventID.String()).
			Str("aggregate_id", aggregateID.String()).
			Int64("sequence", event.SequenceNumber).
			Msg("event recorded but delivery failed, redelivery will retry")
	}
	return nil
}

func (s *Sequencer) deliver(ctx context.Context, event *domain.DomainEvent) error {
	// 同一聚合还有更早的未投递事件时不能直接上总线，否则消费端会看到乱序。
	// 把本事件也留给补投任务，由它按序列号顺序一起补发。
	pending, err := s.events.CountUndeliveredBefore(ctx, event.AggregateID, event.SequenceNumber)
	if err != nil {
		return err
	}
	if pending > 0 {
		return errors.Errorf("aggregate %s has %d earlier undelivered events", event.AggregateID, pending)
	}
	if err := s.transport.Send(ctx, event); err != nil {
		return err
	}
	now := time.Now()
	if err := s.events.MarkDelivered(ctx, event.EventID, now); err != nil {
		// 事件已上总线但标记失败，补投会重发，消费端按 EventID 去重
		logger.Ctx(ctx).Warn().Err(err).
			Str("event_id", event.EventID.String()).
			Msg("mark delivered failed, event may be redelivered")
	}
	event.MarkDelivered(now)
	return nil
}
