// internal/service/auth/domain/port/ports.go
package port

import (
	"context"

	"github.com/google/uuid"
)

// ProfileService 是下游用户档案服务的端口。
// DeleteProfile 必须幂等：档案不存在视为删除成功。
type ProfileService interface {
	CreateProfile(ctx context.Context, userID uuid.UUID, email, displayName string) error
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
}
