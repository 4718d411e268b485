// internal/service/auth/infrastructure/user_client.go
package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"marketplace/internal/pkg/httpclient"
	"marketplace/internal/service/auth/domain/port"
)

const profileCallTimeout = 5 * time.Second

// UserServiceClient 通过 HTTP 调用用户档案服务
type UserServiceClient struct {
	client  *httpclient.Client
	baseURL string
}

func NewUserServiceClient(client *httpclient.Client, baseURL string) *UserServiceClient {
	return &UserServiceClient{client: client, baseURL: baseURL}
}

var _ port.ProfileService = (*UserServiceClient)(nil)

type createProfileRequest struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (c *UserServiceClient) CreateProfile(ctx context.Context, userID uuid.UUID, email, displayName string) error {
	ctx, cancel := context.WithTimeout(ctx, profileCallTimeout)
	defer cancel()

	req := createProfileRequest{UserID: userID.String(), Email: email, DisplayName: displayName}
	err := c.client.PostJSON(ctx, c.baseURL+"/api/v1/profiles", req, nil)
	return errors.Wrap(err, "create profile failed")
}

// DeleteProfile 幂等删除：404 说明档案已不存在，视为成功
func (c *UserServiceClient) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, profileCallTimeout)
	defer cancel()

	err := c.client.Delete(ctx, fmt.Sprintf("%s/api/v1/profiles/%s", c.baseURL, userID))
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return nil
	}
	return errors.Wrap(err, "delete profile failed")
}
