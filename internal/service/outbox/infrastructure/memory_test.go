package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/service/outbox/domain"
)

func TestMemoryEventRepository_RejectsDuplicateEventID(t *testing.T) {
	repo := NewMemoryEventRepository()
	event := domain.NewDomainEvent(uuid.New(), "ItemChanged", nil)
	event.SequenceNumber = 1

	if err := repo.Append(context.Background(), event); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	err := repo.Append(context.Background(), event)
	var duplicate *domain.DuplicateEventError
	if !errors.As(err, &duplicate) {
		t.Fatalf("Expected DuplicateEventError, got: %v", err)
	}
	if duplicate.EventID != event.EventID {
		t.Errorf("Expected event id %s, got %s", event.EventID, duplicate.EventID)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Errorf("Expected 1 stored event, got %d", len(events))
	}
}

func TestMemoryEventRepository_MaxSequence(t *testing.T) {
	repo := NewMemoryEventRepository()
	agg := uuid.New()

	max, err := repo.MaxSequence(context.Background(), agg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if max != 0 {
		t.Errorf("Expected max 0 for empty aggregate, got %d", max)
	}

	for i := 1; i <= 3; i++ {
		event := domain.NewDomainEvent(agg, "ItemChanged", nil)
		event.SequenceNumber = int64(i)
		if err := repo.Append(context.Background(), event); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	max, _ = repo.MaxSequence(context.Background(), agg)
	if max != 3 {
		t.Errorf("Expected max 3, got %d", max)
	}
}

func TestMemoryEventRepository_CountUndeliveredBefore(t *testing.T) {
	repo := NewMemoryEventRepository()
	agg := uuid.New()

	var events []*domain.DomainEvent
	for i := 1; i <= 3; i++ {
		event := domain.NewDomainEvent(agg, "ItemChanged", nil)
		event.SequenceNumber = int64(i)
		repo.Append(context.Background(), event)
		events = append(events, event)
	}

	count, err := repo.CountUndeliveredBefore(context.Background(), agg, 3)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 undelivered events before sequence 3, got %d", count)
	}

	// 已投递的事件不再计入
	repo.MarkDelivered(context.Background(), events[0].EventID, time.Now())
	if count, _ = repo.CountUndeliveredBefore(context.Background(), agg, 3); count != 1 {
		t.Errorf("Expected 1 undelivered event before sequence 3, got %d", count)
	}

	// 其他聚合互不影响
	if count, _ = repo.CountUndeliveredBefore(context.Background(), uuid.New(), 10); count != 0 {
		t.Errorf("Expected 0 for unrelated aggregate, got %d", count)
	}
}

func TestMemoryEventRepository_MarkDelivered(t *testing.T) {
	repo := NewMemoryEventRepository()
	event := domain.NewDomainEvent(uuid.New(), "ItemChanged", nil)
	event.SequenceNumber = 1
	repo.Append(context.Background(), event)

	if err := repo.MarkDelivered(context.Background(), event.EventID, time.Now()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pending, _ := repo.ListUndelivered(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("Expected no undelivered events, got %d", len(pending))
	}
}
