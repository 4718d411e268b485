// internal/service/auth/domain/errors.go
package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrOrphanNotFound     = errors.New("orphan record not found")
)

// DuplicateEmailError 表示邮箱已注册过
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email %s is already registered", e.Email)
}

// CollaboratorUnavailableError 表示下游用户档案服务不可用，注册整体失败
type CollaboratorUnavailableError struct {
	Cause error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("user profile service unavailable: %v", e.Cause)
}

func (e *CollaboratorUnavailableError) Unwrap() error {
	return e.Cause
}
