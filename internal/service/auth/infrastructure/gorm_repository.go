// internal/service/auth/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/service/auth/domain"
)

// GormCredentialRepository 是凭证表的 MySQL 实现
type GormCredentialRepository struct {
	db *gorm.DB
}

func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

var _ domain.CredentialRepository = (*GormCredentialRepository)(nil)

func (r *GormCredentialRepository) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query credential by email %s failed", email)
	}
	return toDomainCredential(&model)
}

func (r *GormCredentialRepository) Save(ctx context.Context, credential *domain.Credential) error {
	model := toCredentialModel(credential)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash"}),
		}).
		Create(model).Error
	return errors.Wrapf(err, "save credential of user %s failed", credential.UserID)
}

// GormOrphanRepository 是孤儿清理表的 MySQL 实现
type GormOrphanRepository struct {
	db *gorm.DB
}

func NewGormOrphanRepository(db *gorm.DB) *GormOrphanRepository {
	return &GormOrphanRepository{db: db}
}

var _ domain.OrphanRepository = (*GormOrphanRepository)(nil)

func (r *GormOrphanRepository) FindPending(ctx context.Context, limit int) ([]*domain.OrphanRecord, error) {
	var models []*OrphanRecordModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.OrphanStatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list pending orphan records failed")
	}

	records := make([]*domain.OrphanRecord, 0, len(models))
	for _, model := range models {
		record, err := toDomainOrphan(model)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *GormOrphanRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.OrphanRecord, error) {
	var model OrphanRecordModel
	err := r.db.WithContext(ctx).Where("orphan_id = ?", id.String()).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrphanNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query orphan record %s failed", id)
	}
	return toDomainOrphan(&model)
}

func (r *GormOrphanRepository) Save(ctx context.Context, record *domain.OrphanRecord) error {
	model := toOrphanModel(record)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "orphan_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "retry_count", "last_error", "updated_at"}),
		}).
		Create(model).Error
	return errors.Wrapf(err, "save orphan record %s failed", record.ID)
}
