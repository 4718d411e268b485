// internal/service/auth/domain/credential.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential 是一条登录凭证，UserID 与用户档案服务里的档案一一对应
type Credential struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func NewCredential(userID uuid.UUID, email, passwordHash string) *Credential {
	return &Credential{
		UserID:       userID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}
