// internal/service/auth/domain/repository.go
package domain

import (
	"context"

	"github.com/google/uuid"
)

// CredentialRepository 持久化登录凭证
type CredentialRepository interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	Save(ctx context.Context, credential *Credential) error
}

// OrphanRepository 持久化孤儿档案清理记录
type OrphanRepository interface {
	FindPending(ctx context.Context, limit int) ([]*OrphanRecord, error)
	Save(ctx context.Context, record *OrphanRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*OrphanRecord, error)
}
