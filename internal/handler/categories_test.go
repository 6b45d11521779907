package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/handler"
)

// --- Mock store ---

type mockCategoryStore struct {
	categories []database.Category
}

func (m *mockCategoryStore) ListCategories(_ context.Context) ([]database.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryStore) CreateCategory(_ context.Context, arg database.CreateCategoryParams) (database.Category, error) {
	c := database.Category{ID: uuid.New(), Name: arg.Name, SortOrder: arg.SortOrder}
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *mockCategoryStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	for i, c := range m.categories {
		if c.ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func setupCategoryRouter(store *mockCategoryStore) *chi.Mux {
	h := handler.NewCategoryHandler(store)
	r := chi.NewRouter()
	r.Get("/categories", h.List)
	r.Post("/categories", h.Create)
	r.Delete("/categories/{id}", h.Delete)
	return r
}

// --- Tests ---

func TestCategoryCreateAndList(t *testing.T) {
	store := &mockCategoryStore{}
	router := setupCategoryRouter(store)

	rr := postJSON(t, router, "/categories", map[string]interface{}{
		"name":       "Pastries",
		"sort_order": 2,
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	rr = doRequest(t, router, "GET", "/categories")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeListResponse(t, rr)
	if len(resp) != 1 || resp[0]["name"] != "Pastries" {
		t.Fatalf("expected Pastries in list, got %v", resp)
	}
}

func TestCategoryCreate_MissingName(t *testing.T) {
	store := &mockCategoryStore{}
	router := setupCategoryRouter(store)

	rr := postJSON(t, router, "/categories", map[string]interface{}{"sort_order": 1}, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCategoryDelete_NotFound(t *testing.T) {
	store := &mockCategoryStore{}
	router := setupCategoryRouter(store)

	rr := doRequest(t, router, "DELETE", "/categories/"+uuid.NewString())
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
