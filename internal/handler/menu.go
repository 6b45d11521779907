package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	ListAvailableMenuItems(ctx context.Context) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
	ListVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuItemVariant, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
}

// MenuHandler handles menu item CRUD and the public menu endpoint.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// --- Request / Response types ---

type menuItemRequest struct {
	CategoryID        string `json:"category_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	BasePrice         string `json:"base_price"`
	IsAvailable       *bool  `json:"is_available"`
	StockQuantity     *int32 `json:"stock_quantity"`
	LowStockThreshold *int32 `json:"low_stock_threshold"`
}

type menuItemResponse struct {
	ID                uuid.UUID  `json:"id"`
	CategoryID        *uuid.UUID `json:"category_id"`
	Name              string     `json:"name"`
	Description       *string    `json:"description"`
	BasePrice         string     `json:"base_price"`
	IsAvailable       bool       `json:"is_available"`
	StockQuantity     int32      `json:"stock_quantity"`
	LowStockThreshold int32      `json:"low_stock_threshold"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:                m.ID,
		Name:              m.Name,
		BasePrice:         numericString(m.BasePrice),
		IsAvailable:       m.IsAvailable,
		StockQuantity:     m.StockQuantity,
		LowStockThreshold: m.LowStockThreshold,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.CategoryID.Valid {
		id := uuid.UUID(m.CategoryID.Bytes)
		resp.CategoryID = &id
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	return resp
}

type variantResponse struct {
	ID          uuid.UUID `json:"id"`
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Label       string    `json:"label"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

func toVariantResponse(v database.MenuItemVariant) variantResponse {
	return variantResponse{
		ID:          v.ID,
		MenuItemID:  v.MenuItemID,
		Label:       v.Label,
		Price:       numericString(v.Price),
		IsAvailable: v.IsAvailable,
	}
}

// --- Helpers ---

// numericString formats a pgtype.Numeric money column with 2 decimal places.
func numericString(n pgtype.Numeric) string {
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

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- Handlers ---

// List returns all menu items, including unavailable ones.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item with its variants.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	variants, err := h.store.ListVariantsByMenuItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list variants: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	variantResp := make([]variantResponse, len(variants))
	for i, v := range variants {
		variantResp[i] = toVariantResponse(v)
	}

	writeJSON(w, http.StatusOK, struct {
		menuItemResponse
		Variants []variantResponse `json:"variants"`
	}{toMenuItemResponse(item), variantResp})
}

// Create adds a new menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.BasePrice == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_price is required"})
		return
	}

	price, err := parsePrice(req.BasePrice)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_price"})
		}
		return
	}

	categoryID := pgtype.UUID{}
	if req.CategoryID != "" {
		cid, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		categoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	var stock int32
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock_quantity must be >= 0"})
			return
		}
		stock = *req.StockQuantity
	}

	var threshold int32 = 5
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CategoryID:        categoryID,
		Name:              req.Name,
		Description:       desc,
		BasePrice:         price,
		IsAvailable:       isAvailable,
		StockQuantity:     stock,
		LowStockThreshold: threshold,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update modifies an existing menu item. Stock is deliberately not updatable
// here; stock moves only through orders, restocks, and adjustments so the
// inventory ledger stays complete.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.BasePrice == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_price is required"})
		return
	}

	price, err := parsePrice(req.BasePrice)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_price"})
		}
		return
	}

	categoryID := pgtype.UUID{}
	if req.CategoryID != "" {
		cid, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		categoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	var threshold int32 = 5
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:                id,
		CategoryID:        categoryID,
		Name:              req.Name,
		Description:       desc,
		BasePrice:         price,
		IsAvailable:       isAvailable,
		LowStockThreshold: threshold,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes a menu item.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublicMenu returns the customer-facing menu: available items grouped by
// category, each with its available variants. Served without authentication
// for the QR-code ordering page.
func (h *MenuHandler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: public menu categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListAvailableMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: public menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type publicItem struct {
		menuItemResponse
		Variants []variantResponse `json:"variants"`
	}
	type publicCategory struct {
		ID    uuid.UUID    `json:"id"`
		Name  string       `json:"name"`
		Items []publicItem `json:"items"`
	}

	byCategory := make(map[uuid.UUID][]publicItem)
	var uncategorized []publicItem
	for _, m := range items {
		variants, err := h.store.ListVariantsByMenuItem(r.Context(), m.ID)
		if err != nil {
			log.Printf("ERROR: public menu variants: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		variantResp := make([]variantResponse, 0, len(variants))
		for _, v := range variants {
			if v.IsAvailable {
				variantResp = append(variantResp, toVariantResponse(v))
			}
		}
		pi := publicItem{toMenuItemResponse(m), variantResp}
		if m.CategoryID.Valid {
			cid := uuid.UUID(m.CategoryID.Bytes)
			byCategory[cid] = append(byCategory[cid], pi)
		} else {
			uncategorized = append(uncategorized, pi)
		}
	}

	resp := []publicCategory{}
	for _, c := range categories {
		if len(byCategory[c.ID]) == 0 {
			continue
		}
		resp = append(resp, publicCategory{ID: c.ID, Name: c.Name, Items: byCategory[c.ID]})
	}
	if len(uncategorized) > 0 {
		resp = append(resp, publicCategory{Name: "Others", Items: uncategorized})
	}

	writeJSON(w, http.StatusOK, resp)
}
