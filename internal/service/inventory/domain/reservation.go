// internal/service/inventory/domain/reservation.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus 定义了预留的生命周期状态
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationConfirmed ReservationStatus = "CONFIRMED" // 终态
	ReservationReleased  ReservationStatus = "RELEASED"  // 终态
	ReservationExpired   ReservationStatus = "EXPIRED"   // 终态
)

// ReservationLine 是预留中的一行，指向一个 SKU 和数量
type ReservationLine struct {
	SKU      string
	Quantity int
}

// MergeLines 合并重复 SKU 的行，数量累加，保持首次出现的顺序
func MergeLines(lines []ReservationLine) []ReservationLine {
	merged := make([]ReservationLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.SKU]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.SKU] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// Reservation 是预留聚合的根实体。
// 一个订单最多只能有一个预留（OrderID 唯一），
// 状态流转只允许 ACTIVE -> {CONFIRMED, RELEASED, EXPIRED}，终态不可再变。
type Reservation struct {
	ReservationID uuid.UUID
	OrderID       uuid.UUID
	Status        ReservationStatus
	ExpiresAt     time.Time
	Lines         []ReservationLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewReservation 创建一个 ACTIVE 状态的预留
func NewReservation(orderID uuid.UUID, lines []ReservationLine, expiresAt time.Time) *Reservation {
	now := time.Now()
	return &Reservation{
		ReservationID: uuid.New(),
		OrderID:       orderID,
		Status:        ReservationActive,
		ExpiresAt:     expiresAt,
		Lines:         lines,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Confirm 把预留转为 CONFIRMED。
// 已经 CONFIRMED 时是幂等空操作；其余终态返回 ReservationNotActiveError；
// 已过 TTL 的 ACTIVE 预留不允许确认。
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status == ReservationConfirmed {
		return nil
	}
	if r.Status != ReservationActive {
		return &ReservationNotActiveError{ReservationID: r.ReservationID, Status: r.Status}
	}
	if r.IsExpired(now) {
		return &ReservationExpiredError{ReservationID: r.ReservationID}
	}
	r.Status = ReservationConfirmed
	r.UpdatedAt = time.Now()
	return nil
}

// Release 把预留转为 RELEASED。
// 返回 false 表示预留已不是 ACTIVE，调用方应视为空操作。
func (r *Reservation) Release() bool {
	if r.Status != ReservationActive {
		return false
	}
	r.Status = ReservationReleased
	r.UpdatedAt = time.Now()
	return true
}

// Expire 把预留转为 EXPIRED，语义同 Release
func (r *Reservation) Expire() bool {
	if r.Status != ReservationActive {
		return false
	}
	r.Status = ReservationExpired
	r.UpdatedAt = time.Now()
	return true
}

// SKUs 返回预留涉及的所有 SKU
func (r *Reservation) SKUs() []string {
	skus := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		skus = append(skus, line.SKU)
	}
	return skus
}
