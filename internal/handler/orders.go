package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/lamoy/api/internal/middleware"
	"github.com/lamoy/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, identity service.Identity, req service.CreateOrderRequest) (*service.OrderDetail, error)
	GetOrder(ctx context.Context, identity service.Identity, orderID int64) (*service.OrderDetail, error)
	ListOrdersByUser(ctx context.Context, identity service.Identity, userID int64) ([]service.OrderDetail, error)
	ListAllOrders(ctx context.Context, identity service.Identity) ([]database.ListAllOrdersRow, error)
	CancelOrder(ctx context.Context, identity service.Identity, orderID int64) (*database.Order, error)
	UpdateStatus(ctx context.Context, identity service.Identity, orderID int64, newStatus enum.OrderStatus) (*database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints for authenticated users.
// Expected to be mounted under /api.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/user/{userID}", h.ListByUser)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// RegisterAdminRoutes registers admin-only order endpoints. Expected to be
// mounted inside a RequireRole(ADMIN) group under /api.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders/admin/all", h.ListAll)
	r.Put("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	UserID          int64                    `json:"user_id"`
	DeliveryAddress string                   `json:"delivery_address"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	DeliveryAddress string              `json:"delivery_address"`
	TotalPrice      string              `json:"total_price"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID              int64   `json:"id"`
	MenuItemID      int64   `json:"menu_item_id"`
	Name            string  `json:"name,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	Quantity        int32   `json:"quantity"`
	PriceAtPurchase string  `json:"price_at_purchase"`
}

type adminOrderResponse struct {
	orderResponse
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.DeliveryAddress == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delivery_address is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), identity, service.CreateOrderRequest{
		UserID:          req.UserID,
		DeliveryAddress: req.DeliveryAddress,
		Items:           svcItems,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// ListByUser handles GET /api/orders/user/{userID}.
func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	results, err := h.svc.ListOrdersByUser(r.Context(), identity, userID)
	if err != nil {
		writeServiceError(w, "list orders by user", err)
		return
	}

	resp := make([]orderResponse, len(results))
	for i := range results {
		resp[i] = toOrderResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles POST /api/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	cancelled, err := h.svc.CancelOrder(r.Context(), identity, orderID)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*cancelled))
}

// ListAll handles GET /api/orders/admin/all.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	rows, err := h.svc.ListAllOrders(r.Context(), identity)
	if err != nil {
		writeServiceError(w, "list all orders", err)
		return
	}

	resp := make([]adminOrderResponse, len(rows))
	for i, row := range rows {
		resp[i] = adminOrderResponse{
			orderResponse: orderResponse{
				ID:              row.ID,
				UserID:          row.UserID,
				DeliveryAddress: row.DeliveryAddress,
				TotalPrice:      numericToString(row.TotalPrice),
				Status:          row.Status.String(),
				CreatedAt:       row.CreatedAt,
				UpdatedAt:       row.UpdatedAt,
			},
			CustomerName:  row.CustomerName,
			CustomerEmail: row.CustomerEmail,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	newStatus, err := enum.ParseOrderStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), identity, orderID, newStatus)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// --- Helpers ---

// requireIdentity extracts the authenticated caller from the request context.
// Writes 401 and returns ok=false when no identity is present.
func requireIdentity(w http.ResponseWriter, r *http.Request) (service.Identity, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return service.Identity{}, false
	}
	return service.Identity{UserID: claims.UserID, Role: claims.Role}, true
}

func toOrderResponse(d *service.OrderDetail) orderResponse {
	resp := dbOrderToResponse(d.Order)
	resp.Items = make([]orderItemResponse, len(d.Items))
	for i, item := range d.Items {
		ir := orderItemResponse{
			ID:              item.ID,
			MenuItemID:      item.MenuItemID,
			Name:            item.ItemName,
			Quantity:        item.Quantity,
			PriceAtPurchase: numericToString(item.PriceAtPurchase),
		}
		if item.ItemImageURL.Valid {
			ir.ImageURL = &item.ItemImageURL.String
		}
		resp.Items[i] = ir
	}
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		DeliveryAddress: o.DeliveryAddress,
		TotalPrice:      numericToString(o.TotalPrice),
		Status:          o.Status.String(),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
