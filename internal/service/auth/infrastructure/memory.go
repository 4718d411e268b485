// internal/service/auth/infrastructure/memory.go
package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"marketplace/internal/service/auth/domain"
)

// MemoryCredentialRepository 是凭证表的内存实现，用于测试与本地运行
type MemoryCredentialRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.Credential
}

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{byEmail: make(map[string]*domain.Credential)}
}

var _ domain.CredentialRepository = (*MemoryCredentialRepository)(nil)

func (r *MemoryCredentialRepository) FindByEmail(_ context.Context, email string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	credential, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	copied := *credential
	return &copied, nil
}

func (r *MemoryCredentialRepository) Save(_ context.Context, credential *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *credential
	r.byEmail[credential.Email] = &copied
	return nil
}

// MemoryOrphanRepository 是孤儿清理表的内存实现
type MemoryOrphanRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*domain.OrphanRecord
}

func NewMemoryOrphanRepository() *MemoryOrphanRepository {
	return &MemoryOrphanRepository{byID: make(map[uuid.UUID]*domain.OrphanRecord)}
}

var _ domain.OrphanRepository = (*MemoryOrphanRepository)(nil)

func (r *MemoryOrphanRepository) FindPending(_ context.Context, limit int) ([]*domain.OrphanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*domain.OrphanRecord
	for _, record := range r.byID {
		if record.Status == domain.OrphanStatusPending {
			copied := *record
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *MemoryOrphanRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.OrphanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrphanNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *MemoryOrphanRepository) Save(_ context.Context, record *domain.OrphanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *record
	r.byID[record.ID] = &copied
	return nil
}
