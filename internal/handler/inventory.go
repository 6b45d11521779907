package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/enum"
	"github.com/kapehan-pos/api/internal/middleware"
	"github.com/kapehan-pos/api/internal/service"
)

// InventoryStore defines the database methods needed by inventory handlers.
type InventoryStore interface {
	GetMenuItemForUpdate(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	AdjustMenuItemStock(ctx context.Context, arg database.AdjustMenuItemStockParams) (int32, error)
	CreateInventoryLog(ctx context.Context, arg database.CreateInventoryLogParams) (database.InventoryLog, error)
	ListInventoryLogs(ctx context.Context, arg database.ListInventoryLogsParams) ([]database.InventoryLog, error)
	ListLowStockMenuItems(ctx context.Context) ([]database.MenuItem, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

// InventoryHandler handles restock, manual adjustment, and ledger endpoints.
// Stock writes run in a transaction so the menu_items row and its ledger
// entry always move together.
type InventoryHandler struct {
	store    InventoryStore
	pool     service.TxBeginner
	newStore NewInventoryStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(store InventoryStore, pool service.TxBeginner, newStore NewInventoryStore) *InventoryHandler {
	return &InventoryHandler{store: store, pool: pool, newStore: newStore}
}

// --- Request / Response types ---

type restockRequest struct {
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

type adjustRequest struct {
	QuantityChange int32  `json:"quantity_change"`
	Notes          string `json:"notes"`
}

type inventoryLogResponse struct {
	ID               uuid.UUID  `json:"id"`
	MenuItemID       uuid.UUID  `json:"menu_item_id"`
	ActionType       string     `json:"action_type"`
	QuantityChange   int32      `json:"quantity_change"`
	PreviousStock    int32      `json:"previous_stock"`
	NewStock         int32      `json:"new_stock"`
	ReferenceOrderID *uuid.UUID `json:"reference_order_id"`
	Notes            *string    `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toInventoryLogResponse(l database.InventoryLog) inventoryLogResponse {
	resp := inventoryLogResponse{
		ID:             l.ID,
		MenuItemID:     l.MenuItemID,
		ActionType:     l.ActionType,
		QuantityChange: l.QuantityChange,
		PreviousStock:  l.PreviousStock,
		NewStock:       l.NewStock,
		CreatedAt:      l.CreatedAt,
	}
	if l.ReferenceOrderID.Valid {
		id := uuid.UUID(l.ReferenceOrderID.Bytes)
		resp.ReferenceOrderID = &id
	}
	if l.Notes.Valid {
		resp.Notes = &l.Notes.String
	}
	return resp
}

// --- Handlers ---

// Restock handles POST /menu-items/{id}/restock. Quantity must be positive.
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}
	h.applyStockChange(w, r, enum.InventoryActionRestock, req.Quantity, req.Notes)
}

// Adjust handles POST /menu-items/{id}/adjust: a signed correction for
// spoilage, recounts, and the like.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.QuantityChange == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity_change must be non-zero"})
		return
	}
	h.applyStockChange(w, r, enum.InventoryActionAdjustment, req.QuantityChange, req.Notes)
}

func (h *InventoryHandler) applyStockChange(w http.ResponseWriter, r *http.Request, actionType string, delta int32, notes string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := h.newStore(tx)

	item, err := store.GetMenuItemForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if item.StockQuantity+delta < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock cannot go negative"})
		return
	}

	newStock, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
		ID:    id,
		Delta: delta,
	})
	if err != nil {
		log.Printf("ERROR: adjust stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	noteText := pgtype.Text{}
	if notes != "" {
		noteText = pgtype.Text{String: notes, Valid: true}
	}

	logEntry, err := store.CreateInventoryLog(ctx, database.CreateInventoryLogParams{
		MenuItemID:     id,
		ActionType:     actionType,
		QuantityChange: delta,
		PreviousStock:  item.StockQuantity,
		NewStock:       newStock,
		Notes:          noteText,
		CreatedBy:      pgtype.UUID{Bytes: claims.UserID, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: create inventory log: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("ERROR: commit tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toInventoryLogResponse(logEntry))
}

// ListLogs handles GET /inventory-logs with optional menu_item_id and
// action_type filters.
func (h *InventoryHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	params := database.ListInventoryLogsParams{
		ActionType: r.URL.Query().Get("action_type"),
		Limit:      50,
	}

	if v := r.URL.Query().Get("menu_item_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
			return
		}
		params.MenuItemID = pgtype.UUID{Bytes: id, Valid: true}
	}

	if params.ActionType != "" && !isValidActionType(params.ActionType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid action_type"})
		return
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

	logs, err := h.store.ListInventoryLogs(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list inventory logs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = toInventoryLogResponse(l)
	}
	writeJSON(w, http.StatusOK, resp)
}

// LowStock handles GET /menu-items/low-stock: items at or below their
// low stock threshold.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListLowStockMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

func isValidActionType(s string) bool {
	switch s {
	case enum.InventoryActionSale, enum.InventoryActionRestock, enum.InventoryActionAdjustment:
		return true
	}
	return false
}
