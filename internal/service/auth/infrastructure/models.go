// internal/service/auth/infrastructure/models.go
package infrastructure

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"marketplace/internal/service/auth/domain"
)

// CredentialModel 是凭证表的 GORM 模型
type CredentialModel struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       string    `gorm:"type:char(36);uniqueIndex:uniq_user_id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex:uniq_email"`
	PasswordHash string    `gorm:"type:varchar(100)"`
	CreatedAt    time.Time `gorm:""`
}

func (CredentialModel) TableName() string {
	return "auth_credentials"
}

// OrphanRecordModel 是孤儿清理表的 GORM 模型
type OrphanRecordModel struct {
	ID         uint      `gorm:"primaryKey"`
	OrphanID   string    `gorm:"type:char(36);uniqueIndex:uniq_orphan_id"`
	UserID     string    `gorm:"type:char(36)"`
	Email      string    `gorm:"type:varchar(255)"`
	Status     string    `gorm:"type:varchar(16);index:idx_orphan_status"`
	RetryCount int       `gorm:""`
	LastError  string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:""`
	UpdatedAt  time.Time `gorm:""`
}

func (OrphanRecordModel) TableName() string {
	return "auth_orphan_records"
}

func toCredentialModel(credential *domain.Credential) *CredentialModel {
	return &CredentialModel{
		UserID:       credential.UserID.String(),
		Email:        credential.Email,
		PasswordHash: credential.PasswordHash,
		CreatedAt:    credential.CreatedAt,
	}
}

func toDomainCredential(model *CredentialModel) (*domain.Credential, error) {
	userID, err := uuid.Parse(model.UserID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse user id %q failed", model.UserID)
	}
	return &domain.Credential{
		UserID:       userID,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		CreatedAt:    model.CreatedAt,
	}, nil
}

func toOrphanModel(record *domain.OrphanRecord) *OrphanRecordModel {
	return &OrphanRecordModel{
		OrphanID:   record.ID.String(),
		UserID:     record.UserID.String(),
		Email:      record.Email,
		Status:     string(record.Status),
		RetryCount: record.RetryCount,
		LastError:  record.LastError,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

func toDomainOrphan(model *OrphanRecordModel) (*domain.OrphanRecord, error) {
	orphanID, err := uuid.Parse(model.OrphanID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse orphan id %q failed", model.OrphanID)
	}
	userID, err := uuid.Parse(model.UserID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse user id %q failed", model.UserID)
	}
	return &domain.OrphanRecord{
		ID:         orphanID,
		UserID:     userID,
		Email:      model.Email,
		Status:     domain.OrphanStatus(model.Status),
		RetryCount: model.RetryCount,
		LastError:  model.LastError,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}, nil
}
