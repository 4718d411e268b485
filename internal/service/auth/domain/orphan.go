// internal/service/auth/domain/orphan.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrphanStatus 是孤儿档案清理记录的状态
type OrphanStatus string

const (
	OrphanStatusPending   OrphanStatus = "PENDING"
	OrphanStatusCompleted OrphanStatus = "COMPLETED"
	OrphanStatusFailed    OrphanStatus = "FAILED"
)

// OrphanRecord 记录一个补偿删除失败后遗留的孤儿档案。
// 注册补偿阶段删除档案失败时落一条 PENDING，后台任务按轮次重试删除。
type OrphanRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Email      string
	Status     OrphanStatus
	RetryCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewOrphanRecord(userID uuid.UUID, email, cause string) *OrphanRecord {
	now := time.Now()
	return &OrphanRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		Status:    OrphanStatusPending,
		LastError: cause,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IncrementRetry 记录一次失败的清理尝试
func (o *OrphanRecord) IncrementRetry(cause string) {
	o.RetryCount++
	o.LastError = cause
	o.UpdatedAt = time.Now()
}

// MarkCompleted 孤儿档案已删除
func (o *OrphanRecord) MarkCompleted() {
	o.Status = OrphanStatusCompleted
	o.UpdatedAt = time.Now()
}

// MarkFailed 超过重试上限，转入终态等待人工介入
func (o *OrphanRecord) MarkFailed() {
	o.Status = OrphanStatusFailed
	o.UpdatedAt = time.Now()
}
