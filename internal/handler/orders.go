package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/auth"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/middleware"
	"github.com/kapehan-pos/api/internal/service"
	"github.com/kapehan-pos/api/internal/ws"
)

// OrderReadStore defines the read-only database methods needed by order
// handlers; writes go through the order service.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetTransactionByOrder(ctx context.Context, orderID uuid.UUID) (database.Transaction, error)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	svc       *service.OrderService
	store     OrderReadStore
	hub       *ws.Hub
	jwtSecret string
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc *service.OrderService, store OrderReadStore, hub *ws.Hub, jwtSecret string) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the staff order endpoints on the given Chi router.
// Create is registered separately, outside the auth middleware, so the QR
// ordering page can post orders without a session.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/void", h.Void)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName   string                   `json:"customer_name"`
	TableNumber    string                   `json:"table_number"`
	PaymentMethod  string                   `json:"payment_method"`
	DiscountAmount string                   `json:"discount_amount"`
	CashReceived   string                   `json:"cash_received"`
	ChangeAmount   string                   `json:"change_amount"`
	Status         string                   `json:"status"`
	Items          []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	VariantID  string `json:"variant_id"`
	Quantity   int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	TotalAmount    string `json:"total_amount"`
	DiscountAmount string `json:"discount_amount"`
	CashReceived   string `json:"cash_received"`
	ChangeAmount   string `json:"change_amount"`
	PaymentMethod  string `json:"payment_method"`
}

type voidOrderRequest struct {
	VoidReason    string `json:"void_reason"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    string              `json:"order_number"`
	CustomerName   *string             `json:"customer_name"`
	TableNumber    *string             `json:"table_number"`
	Status         string              `json:"status"`
	PaymentMethod  string              `json:"payment_method"`
	TotalAmount    string              `json:"total_amount"`
	DiscountAmount string              `json:"discount_amount"`
	CashReceived   string              `json:"cash_received"`
	ChangeAmount   string              `json:"change_amount"`
	IsVoided       bool                `json:"is_voided"`
	VoidReason     *string             `json:"void_reason,omitempty"`
	VoidedAt       *time.Time          `json:"voided_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	MenuItemID   uuid.UUID  `json:"menu_item_id"`
	VariantID    *uuid.UUID `json:"variant_id"`
	ItemName     string     `json:"item_name"`
	VariantLabel *string    `json:"variant_label"`
	Quantity     int32      `json:"quantity"`
	UnitPrice    string     `json:"unit_price"`
	TotalPrice   string     `json:"total_price"`
}

type transactionResponse struct {
	ID            uuid.UUID `json:"id"`
	Amount        string    `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		PaymentMethod:  o.PaymentMethod,
		TotalAmount:    numericString(o.TotalAmount),
		DiscountAmount: numericString(o.DiscountAmount),
		CashReceived:   numericString(o.CashReceived),
		ChangeAmount:   numericString(o.ChangeAmount),
		IsVoided:       o.IsVoided,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.TableNumber.Valid {
		resp.TableNumber = &o.TableNumber.String
	}
	if o.VoidReason.Valid {
		resp.VoidReason = &o.VoidReason.String
	}
	if o.VoidedAt.Valid {
		resp.VoidedAt = &o.VoidedAt.Time
	}
	return resp
}

func toOrderItemResponse(i database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         i.ID,
		MenuItemID: i.MenuItemID,
		ItemName:   i.ItemName,
		Quantity:   i.Quantity,
		UnitPrice:  numericString(i.UnitPrice),
		TotalPrice: numericString(i.TotalPrice),
	}
	if i.VariantID.Valid {
		id := uuid.UUID(i.VariantID.Bytes)
		resp.VariantID = &id
	}
	if i.VariantLabel.Valid {
		resp.VariantLabel = &i.VariantLabel.String
	}
	return resp
}

// --- Handlers ---

// Create handles POST /orders. Also reachable without a session from the
// public QR ordering page; when a staff session is present the order is
// attributed to that user.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// The create route is public for QR ordering, so it sits outside the
	// auth middleware. A staff terminal still sends its token; use it for
	// attribution when present.
	createdBy := uuid.Nil
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		createdBy = claims.UserID
	} else if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		if claims, err := auth.ValidateToken(h.jwtSecret, strings.TrimPrefix(header, "Bearer ")); err == nil {
			createdBy = claims.UserID
		}
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			VariantID:  item.VariantID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName:   req.CustomerName,
		TableNumber:    req.TableNumber,
		PaymentMethod:  req.PaymentMethod,
		DiscountAmount: req.DiscountAmount,
		CashReceived:   req.CashReceived,
		ChangeAmount:   req.ChangeAmount,
		Status:         req.Status,
		CreatedBy:      createdBy,
		Items:          items,
	})
	if err != nil {
		if isCreateOrderClientError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = toOrderItemResponse(item)
	}

	h.broadcast("order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders with optional status, voided, and date filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{
		Status: r.URL.Query().Get("status"),
		Limit:  50,
	}

	if v := r.URL.Query().Get("voided"); v != "" {
		voided, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid voided filter"})
			return
		}
		params.IsVoided = pgtype.Bool{Bool: voided, Valid: true}
	}

	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 32)
		if err != nil || limit < 1 || limit > 200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		params.Limit = int32(limit)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.ParseInt(v, 10, 32)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		params.Offset = int32(offset)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}: the order with its items and transaction.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = toOrderItemResponse(item)
	}

	out := struct {
		orderResponse
		Transaction *transactionResponse `json:"transaction"`
	}{orderResponse: resp}

	txn, err := h.store.GetTransactionByOrder(r.Context(), id)
	if err == nil {
		out.Transaction = &transactionResponse{
			ID:            txn.ID,
			Amount:        numericString(txn.Amount),
			PaymentMethod: txn.PaymentMethod,
			CreatedAt:     txn.CreatedAt,
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get transaction: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		OrderID:        id,
		Status:         req.Status,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: req.DiscountAmount,
		CashReceived:   req.CashReceived,
		ChangeAmount:   req.ChangeAmount,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrOrderVoided),
			errors.Is(err, service.ErrInvalidStatus),
			errors.Is(err, service.ErrInvalidPayment),
			errors.Is(err, service.ErrInvalidAmount):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toOrderResponse(*order)
	h.broadcast("order.status_updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// Void handles POST /orders/{id}/void. Requires owner or admin credentials
// in the body regardless of the session user.
func (h *OrderHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req voidOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.VoidOrder(r.Context(), service.VoidOrderRequest{
		OrderID:       id,
		VoidReason:    req.VoidReason,
		AdminUsername: req.AdminUsername,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin credentials"})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrAlreadyVoided),
			errors.Is(err, service.ErrVoidReason):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: void order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toOrderResponse(*order)
	h.broadcast("order.voided", resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// isCreateOrderClientError maps order creation failures that are the
// caller's fault to 400. Stock and availability races land here too: the
// client shows the message and refreshes the menu.
func isCreateOrderClientError(err error) bool {
	for _, target := range []error{
		service.ErrEmptyItems,
		service.ErrInvalidQuantity,
		service.ErrInvalidMenuItemID,
		service.ErrInvalidVariantID,
		service.ErrMenuItemNotFound,
		service.ErrMenuItemUnavailable,
		service.ErrInsufficientStock,
		service.ErrVariantNotFound,
		service.ErrVariantUnavailable,
		service.ErrInvalidPayment,
		service.ErrInvalidStatus,
		service.ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *OrderHandler) broadcast(eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: data})
}
