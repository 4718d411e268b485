package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReservation_Confirm(t *testing.T) {
	now := time.Now()
	r := NewReservation(uuid.New(), []ReservationLine{{SKU: "sku-1", Quantity: 2}}, now.Add(time.Hour))

	if err := r.Confirm(now); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if r.Status != ReservationConfirmed {
		t.Errorf("Expected CONFIRMED, got %s", r.Status)
	}

	// 重复确认是幂等空操作
	if err := r.Confirm(now); err != nil {
		t.Errorf("Expected idempotent confirm, got: %v", err)
	}
}

func TestReservation_Confirm_Expired(t *testing.T) {
	now := time.Now()
	r := NewReservation(uuid.New(), []ReservationLine{{SKU: "sku-1", Quantity: 2}}, now.Add(-time.Minute))

	err := r.Confirm(now)
	var expired *ReservationExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("Expected ReservationExpiredError, got: %v", err)
	}
	if r.Status != ReservationActive {
		t.Errorf("Expected status unchanged, got %s", r.Status)
	}
}

func TestReservation_Confirm_AfterRelease(t *testing.T) {
	now := time.Now()
	r := NewReservation(uuid.New(), []ReservationLine{{SKU: "sku-1", Quantity: 2}}, now.Add(time.Hour))
	if !r.Release() {
		t.Fatal("Expected release to succeed")
	}

	err := r.Confirm(now)
	var notActive *ReservationNotActiveError
	if !errors.As(err, &notActive) {
		t.Fatalf("Expected ReservationNotActiveError, got: %v", err)
	}
}

func TestReservation_Release_Terminal(t *testing.T) {
	now := time.Now()
	r := NewReservation(uuid.New(), []ReservationLine{{SKU: "sku-1", Quantity: 2}}, now.Add(time.Hour))
	r.Confirm(now)

	if r.Release() {
		t.Error("Expected release of confirmed reservation to be a no-op")
	}
	if r.Expire() {
		t.Error("Expected expire of confirmed reservation to be a no-op")
	}
	if r.Status != ReservationConfirmed {
		t.Errorf("Expected status CONFIRMED, got %s", r.Status)
	}
}

func TestMergeLines(t *testing.T) {
	merged := MergeLines([]ReservationLine{
		{SKU: "sku-1", Quantity: 1},
		{SKU: "sku-2", Quantity: 3},
		{SKU: "sku-1", Quantity: 2},
	})

	want := []ReservationLine{
		{SKU: "sku-1", Quantity: 3},
		{SKU: "sku-2", Quantity: 3},
	}
	if len(merged) != len(want) {
		t.Fatalf("Expected %d lines, got %d", len(want), len(merged))
	}
	for i, line := range want {
		if merged[i] != line {
			t.Errorf("Expected line %d to be %+v, got %+v", i, line, merged[i])
		}
	}
}
