package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quickbite/orders-service/internal/api/rest/middleware"
	"github.com/quickbite/orders-service/internal/domain"
	"github.com/quickbite/orders-service/internal/repository"
)

// OrderRepository defines the interface for order repository operations
type OrderRepository interface {
	Create(ctx context.Context, draft *domain.OrderDraft, customerID *string) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	ListAvailable(ctx context.Context) ([]*domain.Order, error)
	SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error)
	Assign(ctx context.Context, id, driverID string) (*domain.Order, error)
	AcceptByRestaurant(ctx context.Context, id string) (*domain.Order, error)
}

// EventPublisher delivers lifecycle events to subscribed listeners.
type EventPublisher interface {
	Publish(eventType domain.EventType, order *domain.Order)
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	repo      OrderRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(repo OrderRepository, publisher EventPublisher, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// ListOrders handles GET /orders - returns all orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to list orders",
			"An internal error occurred while processing your request")
		return
	}

	WriteJSONResponse(w, http.StatusOK, orders)
}

// ListAvailableOrders handles GET /orders/available/list - returns
// orders still awaiting pickup.
func (h *OrderHandler) ListAvailableOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.ListAvailable(r.Context())
	if err != nil {
		h.logger.Error("failed to list available orders", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to list orders",
			"An internal error occurred while processing your request")
		return
	}

	WriteJSONResponse(w, http.StatusOK, orders)
}

// CreateOrder handles POST /orders - creates a new order
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if fieldErrs := draft.Validate(); len(fieldErrs) > 0 {
		WriteValidationErrorResponse(w, fieldErrs)
		return
	}

	// Nullable caller identity: the order keeps no customer reference
	// when the request is unauthenticated.
	var customerID *string
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		customerID = &userID
	}

	order, err := h.repo.Create(r.Context(), &draft, customerID)
	if err != nil {
		h.writeRepositoryError(w, err, "create order", "")
		return
	}

	h.publisher.Publish(domain.EventOrderCreated, order)
	WriteJSONResponse(w, http.StatusCreated, order)
}

// GetOrderByID handles GET /orders/{id} - retrieves an order by ID
func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeRepositoryError(w, err, "retrieve order", id)
		return
	}

	WriteJSONResponse(w, http.StatusOK, order)
}

// UpdateStatusRequest represents the request payload for a status change
type UpdateStatusRequest struct {
	Status domain.Status `json:"status"`
}

// UpdateStatus handles PUT /orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if !domain.ValidStatus(req.Status) {
		WriteValidationErrorResponse(w, []domain.FieldError{
			{Field: "status", Message: "status must be one of pending, confirmed, preparing, out_for_delivery, delivered, cancelled"},
		})
		return
	}

	order, err := h.repo.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeRepositoryError(w, err, "update order status", id)
		return
	}

	h.publisher.Publish(domain.EventOrderUpdated, order)
	WriteJSONResponse(w, http.StatusOK, order)
}

// AssignOrder handles POST /orders/{id}/assign - the authenticated
// caller becomes the order's driver.
func (h *OrderHandler) AssignOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	driverID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.logger.Error("user ID not found in context", "order_id", id)
		WriteErrorResponse(w, http.StatusUnauthorized, "Authentication required",
			"User authentication is required")
		return
	}

	order, err := h.repo.Assign(r.Context(), id, driverID)
	if err != nil {
		h.writeRepositoryError(w, err, "assign order", id)
		return
	}

	h.publisher.Publish(domain.EventOrderAssigned, order)
	WriteJSONResponse(w, http.StatusOK, order)
}

// AcceptOrder handles POST /orders/{id}/accept-restaurant
func (h *OrderHandler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.repo.AcceptByRestaurant(r.Context(), id)
	if err != nil {
		h.writeRepositoryError(w, err, "accept order", id)
		return
	}

	h.publisher.Publish(domain.EventOrderConfirmed, order)
	WriteJSONResponse(w, http.StatusOK, order)
}

// writeRepositoryError maps repository errors to client responses.
// Unexpected errors surface generically and are logged with detail.
func (h *OrderHandler) writeRepositoryError(w http.ResponseWriter, err error, op, orderID string) {
	var validationErr *repository.ValidationError
	if errors.As(err, &validationErr) {
		WriteValidationErrorResponse(w, validationErr.Fields)
		return
	}

	var notFoundErr *repository.NotFoundError
	if errors.As(err, &notFoundErr) {
		h.logger.Warn("order not found", "order_id", orderID, "error", err)
		WriteErrorResponse(w, http.StatusNotFound, "Order not found",
			"The requested order could not be found")
		return
	}

	var invalidStateErr *repository.InvalidStateError
	if errors.As(err, &invalidStateErr) {
		h.logger.Warn("invalid order state", "order_id", orderID, "status", invalidStateErr.Status, "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid order state", invalidStateErr.Error())
		return
	}

	h.logger.Error("failed to "+op, "order_id", orderID, "error", err)
	WriteErrorResponse(w, http.StatusInternalServerError, "Failed to "+op,
		"An internal error occurred while processing your request")
}
