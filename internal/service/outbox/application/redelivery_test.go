package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"marketplace/internal/service/outbox/domain"
)

// selectiveTransport 对指定事件失败，其余按序记录
type selectiveTransport struct {
	sent   []*domain.DomainEvent
	failOn uuid.UUID
}

func (t *selectiveTransport) Send(_ context.Context, event *domain.DomainEvent) error {
	if event.EventID == t.failOn {
		return errors.New("broker rejected message")
	}
	copied := *event
	t.sent = append(t.sent, &copied)
	return nil
}

func TestRedelivery_Sweep(t *testing.T) {
	repo := newMemoryRepo()
	down := &stubTransport{fail: true}
	sequencer := NewSequencer(repo, down)
	agg := uuid.New()

	for i := 0; i < 3; i++ {
		if err := sequencer.Publish(context.Background(), agg, "ItemChanged", map[string]any{"n": i}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	recovered := &stubTransport{}
	redelivery := NewRedelivery(repo, recovered, 100, prometheus.NewRegistry())
	redelivery.Sweep(context.Background())

	if len(recovered.sent) != 3 {
		t.Fatalf("Expected 3 redelivered events, got %d", len(recovered.sent))
	}
	// 补投必须按序列号顺序
	for i, event := range recovered.sent {
		if event.SequenceNumber != int64(i+1) {
			t.Errorf("Expected sequence %d at position %d, got %d", i+1, i, event.SequenceNumber)
		}
	}
	for _, event := range repo.Events() {
		if !event.Delivered {
			t.Errorf("Expected event %s marked delivered", event.EventID)
		}
	}
}

func TestRedelivery_SkipsAggregateAfterFailure(t *testing.T) {
	repo := newMemoryRepo()
	down := &stubTransport{fail: true}
	sequencer := NewSequencer(repo, down)
	agg := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		if err := sequencer.Publish(context.Background(), agg, "ItemChanged", nil); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	if err := sequencer.Publish(context.Background(), other, "ItemChanged", nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// 第一条失败后，该聚合剩下的事件必须跳过，避免乱序
	var firstID uuid.UUID
	for _, event := range repo.Events() {
		if event.AggregateID == agg && event.SequenceNumber == 1 {
			firstID = event.EventID
		}
	}
	transport := &selectiveTransport{failOn: firstID}
	redelivery := NewRedelivery(repo, transport, 100, prometheus.NewRegistry())
	redelivery.Sweep(context.Background())

	for _, event := range transport.sent {
		if event.AggregateID == agg {
			t.Errorf("Expected no event of failed aggregate on the bus, got sequence %d", event.SequenceNumber)
		}
	}
	// 其它聚合不受影响
	if len(transport.sent) != 1 || transport.sent[0].AggregateID != other {
		t.Errorf("Expected only the healthy aggregate redelivered, got %d messages", len(transport.sent))
	}
}

func TestRedelivery_NothingPending(t *testing.T) {
	repo := newMemoryRepo()
	transport := &stubTransport{}
	redelivery := NewRedelivery(repo, transport, 100, prometheus.NewRegistry())

	redelivery.Sweep(context.Background())
	if len(transport.sent) != 0 {
		t.Errorf("Expected no messages, got %d", len(transport.sent))
	}
}
