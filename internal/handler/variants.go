package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kapehan-pos/api/internal/database"
)

// VariantStore defines the database methods needed by variant handlers.
type VariantStore interface {
	ListVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuItemVariant, error)
	CreateVariant(ctx context.Context, arg database.CreateVariantParams) (database.MenuItemVariant, error)
	UpdateVariant(ctx context.Context, arg database.UpdateVariantParams) (database.MenuItemVariant, error)
	DeleteVariant(ctx context.Context, arg database.DeleteVariantParams) error
}

// VariantHandler handles menu item variant endpoints.
type VariantHandler struct {
	store VariantStore
}

// NewVariantHandler creates a new VariantHandler.
func NewVariantHandler(store VariantStore) *VariantHandler {
	return &VariantHandler{store: store}
}

type variantRequest struct {
	Label       string `json:"label"`
	Price       string `json:"price"`
	IsAvailable *bool  `json:"is_available"`
}

// List returns all variants of a menu item.
func (h *VariantHandler) List(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "mid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	variants, err := h.store.ListVariantsByMenuItem(r.Context(), menuItemID)
	if err != nil {
		log.Printf("ERROR: list variants: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]variantResponse, len(variants))
	for i, v := range variants {
		resp[i] = toVariantResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new variant to a menu item.
func (h *VariantHandler) Create(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "mid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req variantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	variant, err := h.store.CreateVariant(r.Context(), database.CreateVariantParams{
		MenuItemID:  menuItemID,
		Label:       req.Label,
		Price:       price,
		IsAvailable: isAvailable,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: create variant: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toVariantResponse(variant))
}

// Update modifies a variant of a menu item.
func (h *VariantHandler) Update(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "mid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	variantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant ID"})
		return
	}

	var req variantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	variant, err := h.store.UpdateVariant(r.Context(), database.UpdateVariantParams{
		ID:          variantID,
		MenuItemID:  menuItemID,
		Label:       req.Label,
		Price:       price,
		IsAvailable: isAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variant not found"})
			return
		}
		log.Printf("ERROR: update variant: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toVariantResponse(variant))
}

// Delete removes a variant from a menu item.
func (h *VariantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "mid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	variantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant ID"})
		return
	}

	if err := h.store.DeleteVariant(r.Context(), database.DeleteVariantParams{
		ID:         variantID,
		MenuItemID: menuItemID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variant not found"})
			return
		}
		log.Printf("ERROR: delete variant: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
