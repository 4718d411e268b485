// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"marketplace/internal/service/inventory/application"
	"marketplace/internal/service/inventory/domain"
)

// InventoryHandler 封装了 inventory 服务的 HTTP 处理器
type InventoryHandler struct {
	reservations application.ReservationAPI
	stock        *application.StockService
}

func NewInventoryHandler(reservations application.ReservationAPI, stock *application.StockService) *InventoryHandler {
	return &InventoryHandler{reservations: reservations, stock: stock}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/reserve_stock", h.handleReserve)
	mux.HandleFunc("/confirm_reservation", h.handleConfirm)
	mux.HandleFunc("/release_reservation", h.handleRelease)
	mux.HandleFunc("/get_reservation", h.handleGetReservation)
	mux.HandleFunc("/get_availability", h.handleAvailability)
	mux.HandleFunc("/restock", h.handleRestock)
}

type reserveRequest struct {
	OrderID string `json:"orderId"`
	Lines   []struct {
		SKU      string `json:"sku"`
		Quantity int    `json:"quantity"`
	} `json:"lines"`
}

type reservationResponse struct {
	ReservationID string                   `json:"reservationId"`
	OrderID       string                   `json:"orderId"`
	Status        string                   `json:"status"`
	ExpiresAt     string                   `json:"expiresAt"`
	Lines         []domain.ReservationLine `json:"lines"`
}

func toReservationResponse(r *domain.Reservation) reservationResponse {
	return reservationResponse{
		ReservationID: r.ReservationID.String(),
		OrderID:       r.OrderID.String(),
		Status:        string(r.Status),
		ExpiresAt:     r.ExpiresAt.Format(time.RFC3339),
		Lines:         r.Lines,
	}
}

func (h *InventoryHandler) handleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		http.Error(w, "invalid orderId", http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		http.Error(w, "at least one line is required", http.StatusBadRequest)
		return
	}
	lines := make([]domain.ReservationLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			http.Error(w, "quantity must be positive", http.StatusBadRequest)
			return
		}
		lines = append(lines, domain.ReservationLine{SKU: line.SKU, Quantity: line.Quantity})
	}

	reservation, err := h.reservations.Reserve(ctx, orderID, lines)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, toReservationResponse(reservation))
}

func (h *InventoryHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.reservations.Confirm)
}

func (h *InventoryHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req struct {
		ReservationID string `json:"reservationId"`
		Reason        string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		http.Error(w, "invalid reservationId", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "released by caller"
	}

	reservation, err := h.reservations.Release(ctx, reservationID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, toReservationResponse(reservation))
}

func (h *InventoryHandler) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	reservationID, err := uuid.Parse(r.URL.Query().Get("reservation_id"))
	if err != nil {
		http.Error(w, "invalid reservation_id", http.StatusBadRequest)
		return
	}
	reservation, err := h.reservations.Get(ctx, reservationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, toReservationResponse(reservation))
}

func (h *InventoryHandler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	sku := r.URL.Query().Get("sku")
	if sku == "" {
		http.Error(w, "sku is required", http.StatusBadRequest)
		return
	}
	available, err := h.stock.Availability(ctx, sku)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"sku": sku, "available": available})
}

func (h *InventoryHandler) handleRestock(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req struct {
		SKU      string `json:"sku"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 {
		http.Error(w, "quantity must be positive", http.StatusBadRequest)
		return
	}
	if err := h.stock.Increment(ctx, req.SKU, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (h *InventoryHandler) handleTransition(w http.ResponseWriter, r *http.Request,
	transition func(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error)) {

	ctx := extractTraceContext(r)

	var req struct {
		ReservationID string `json:"reservationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		http.Error(w, "invalid reservationId", http.StatusBadRequest)
		return
	}

	reservation, err := transition(ctx, reservationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, toReservationResponse(reservation))
}

func extractTraceContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

// writeDomainError 根据错误类型返回不同的 HTTP 状态码
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientStockError
	var notActive *domain.ReservationNotActiveError
	var expired *domain.ReservationExpiredError

	var statusCode int
	switch {
	case errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrStockItemNotFound):
		statusCode = http.StatusNotFound
	case errors.As(err, &insufficient):
		statusCode = http.StatusConflict
	case errors.As(err, &notActive), errors.As(err, &expired):
		statusCode = http.StatusForbidden // 客户端请求有效，但状态机拒绝流转
	default:
		statusCode = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), statusCode)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
