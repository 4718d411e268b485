// internal/service/auth/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"marketplace/internal/service/auth/application"
	"marketplace/internal/service/auth/domain"
)

// AuthHandler 封装了 auth 服务的 HTTP 处理器
type AuthHandler struct {
	registration *application.RegistrationService
}

func NewAuthHandler(registration *application.RegistrationService) *AuthHandler {
	return &AuthHandler{registration: registration}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/register", h.handleRegister)
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.registration.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		var duplicate *domain.DuplicateEmailError
		var unavailable *domain.CollaboratorUnavailableError

		var statusCode int
		switch {
		case errors.As(err, &duplicate):
			statusCode = http.StatusConflict
		case errors.As(err, &unavailable):
			statusCode = http.StatusServiceUnavailable
		default:
			statusCode = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"userId": result.UserID.String(),
		"email":  result.Email,
	})
}
