package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]database.User, error) {
	var result []database.User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	for _, u := range m.users {
		if u.Username == arg.Username {
			return database.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
	}
	u := database.User{
		ID:             uuid.New(),
		Username:       arg.Username,
		FullName:       arg.FullName,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		IsActive:       true,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	u.FullName = arg.FullName
	u.Role = arg.Role
	u.IsActive = arg.IsActive
	m.users[arg.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUserPassword(_ context.Context, arg database.UpdateUserPasswordParams) error {
	u, ok := m.users[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.HashedPassword = arg.HashedPassword
	m.users[arg.ID] = u
	return nil
}

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestUserCreate(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := postJSON(t, router, "/users", map[string]interface{}{
		"username":  "cashier2",
		"full_name": "New Cashier",
		"password":  "password123",
		"role":      "CASHIER",
	}, "")

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["username"] != "cashier2" {
		t.Errorf("username: got %v, want cashier2", resp["username"])
	}
	if resp["is_active"] != true {
		t.Errorf("expected new user to be active")
	}
	// Password hash must never leak into the response.
	if _, ok := resp["hashed_password"]; ok {
		t.Error("response must not contain hashed_password")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	body := map[string]interface{}{
		"username":  "cashier2",
		"full_name": "New Cashier",
		"password":  "password123",
		"role":      "CASHIER",
	}
	if rr := postJSON(t, router, "/users", body, ""); rr.Code != http.StatusCreated {
		t.Fatalf("first create: got %d", rr.Code)
	}

	rr := postJSON(t, router, "/users", body, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUserCreate_InvalidRole(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := postJSON(t, router, "/users", map[string]interface{}{
		"username":  "someone",
		"full_name": "Some One",
		"password":  "password123",
		"role":      "BARISTA",
	}, "")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserCreate_ShortPassword(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := postJSON(t, router, "/users", map[string]interface{}{
		"username":  "someone",
		"full_name": "Some One",
		"password":  "short",
		"role":      "CASHIER",
	}, "")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserUpdate_Deactivate(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := postJSON(t, router, "/users", map[string]interface{}{
		"username":  "cashier2",
		"full_name": "New Cashier",
		"password":  "password123",
		"role":      "CASHIER",
	}, "")
	id := decodeResponse(t, rr)["id"].(string)

	inactive := false
	rr2 := putJSON(t, router, "/users/"+id, map[string]interface{}{
		"full_name": "New Cashier",
		"role":      "CASHIER",
		"is_active": inactive,
	})
	if rr2.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rr2.Code, rr2.Body.String())
	}
	if decodeResponse(t, rr2)["is_active"] != false {
		t.Error("expected user to be deactivated")
	}
}

func TestUserUpdatePassword(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := postJSON(t, router, "/users", map[string]interface{}{
		"username":  "cashier2",
		"full_name": "New Cashier",
		"password":  "password123",
		"role":      "CASHIER",
	}, "")
	id := uuid.MustParse(decodeResponse(t, rr)["id"].(string))

	rr2 := putJSON(t, router, "/users/"+id.String()+"/password", map[string]interface{}{
		"password": "newpassword456",
	})
	if rr2.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr2.Code, http.StatusNoContent)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(store.users[id].HashedPassword), []byte("newpassword456")); err != nil {
		t.Error("stored hash does not match the new password")
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := putJSON(t, router, "/users/"+uuid.NewString(), map[string]interface{}{
		"full_name": "Ghost",
		"role":      "CASHIER",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
