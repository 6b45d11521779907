package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/auth"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/enum"
	"github.com/kapehan-pos/api/internal/handler"
	"github.com/kapehan-pos/api/internal/middleware"
	"github.com/kapehan-pos/api/internal/service"
)

// --- Mock tx plumbing ---

type fakeTx struct{}

func (fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (fakeTx) Commit(ctx context.Context) error          { return nil }
func (fakeTx) Rollback(ctx context.Context) error        { return nil }
func (fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { panic("not implemented") }
func (fakeTx) LargeObjects() pgx.LargeObjects                               { panic("not implemented") }
func (fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (fakeTx) Conn() *pgx.Conn { panic("not implemented") }

type fakePool struct{}

func (fakePool) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

// --- In-memory order store ---

// orderState is a tiny in-memory POS database backing both the service's
// OrderStore and the handler's OrderReadStore.
type orderState struct {
	menuItems map[uuid.UUID]database.MenuItem
	variants  map[uuid.UUID]database.MenuItemVariant
	orders    map[uuid.UUID]database.Order
	items     map[uuid.UUID][]database.OrderItem
	users     map[string]database.User
	invLogs   []database.CreateInventoryLogParams
	auditLogs []database.CreateAuditLogParams
}

func newOrderState() *orderState {
	return &orderState{
		menuItems: make(map[uuid.UUID]database.MenuItem),
		variants:  make(map[uuid.UUID]database.MenuItemVariant),
		orders:    make(map[uuid.UUID]database.Order),
		items:     make(map[uuid.UUID][]database.OrderItem),
		users:     make(map[string]database.User),
	}
}

func (s *orderState) GetMenuItemForUpdate(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
	m, ok := s.menuItems[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return m, nil
}

func (s *orderState) GetVariant(_ context.Context, id uuid.UUID) (database.MenuItemVariant, error) {
	v, ok := s.variants[id]
	if !ok {
		return database.MenuItemVariant{}, pgx.ErrNoRows
	}
	return v, nil
}

func (s *orderState) AdjustMenuItemStock(_ context.Context, arg database.AdjustMenuItemStockParams) (int32, error) {
	m, ok := s.menuItems[arg.ID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	m.StockQuantity += arg.Delta
	s.menuItems[arg.ID] = m
	return m.StockQuantity, nil
}

func (s *orderState) CreateOrder(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
	o := database.Order{
		ID:             uuid.New(),
		OrderNumber:    arg.OrderNumber,
		CustomerName:   arg.CustomerName,
		TableNumber:    arg.TableNumber,
		Status:         arg.Status,
		PaymentMethod:  arg.PaymentMethod,
		TotalAmount:    arg.TotalAmount,
		DiscountAmount: arg.DiscountAmount,
		CashReceived:   arg.CashReceived,
		ChangeAmount:   arg.ChangeAmount,
		CreatedBy:      arg.CreatedBy,
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *orderState) CreateOrderItem(_ context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	item := database.OrderItem{
		ID:           uuid.New(),
		OrderID:      arg.OrderID,
		MenuItemID:   arg.MenuItemID,
		VariantID:    arg.VariantID,
		ItemName:     arg.ItemName,
		VariantLabel: arg.VariantLabel,
		Quantity:     arg.Quantity,
		UnitPrice:    arg.UnitPrice,
		TotalPrice:   arg.TotalPrice,
	}
	s.items[arg.OrderID] = append(s.items[arg.OrderID], item)
	return item, nil
}

func (s *orderState) CreateTransaction(_ context.Context, arg database.CreateTransactionParams) (database.Transaction, error) {
	return database.Transaction{ID: uuid.New(), OrderID: arg.OrderID, Amount: arg.Amount, PaymentMethod: arg.PaymentMethod}, nil
}

func (s *orderState) UpsertTransaction(_ context.Context, arg database.UpsertTransactionParams) (database.Transaction, error) {
	return database.Transaction{ID: uuid.New(), OrderID: arg.OrderID, Amount: arg.Amount, PaymentMethod: arg.PaymentMethod}, nil
}

func (s *orderState) CreateInventoryLog(_ context.Context, arg database.CreateInventoryLogParams) (database.InventoryLog, error) {
	s.invLogs = append(s.invLogs, arg)
	return database.InventoryLog{ID: uuid.New()}, nil
}

func (s *orderState) GetOrderForUpdate(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (s *orderState) UpdateOrderStatus(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := s.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.TotalAmount.Valid {
		o.TotalAmount = arg.TotalAmount
	}
	if arg.PaymentMethod.Valid {
		o.PaymentMethod = arg.PaymentMethod.String
	}
	s.orders[arg.ID] = o
	return o, nil
}

func (s *orderState) MarkOrderVoided(_ context.Context, arg database.MarkOrderVoidedParams) (database.Order, error) {
	o, ok := s.orders[arg.ID]
	if !ok || o.IsVoided {
		return database.Order{}, pgx.ErrNoRows
	}
	o.IsVoided = true
	o.Status = enum.OrderStatusVoided
	o.VoidReason = pgtype.Text{String: arg.VoidReason, Valid: true}
	o.VoidedBy = pgtype.UUID{Bytes: arg.VoidedBy, Valid: true}
	s.orders[arg.ID] = o
	return o, nil
}

func (s *orderState) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return s.items[orderID], nil
}

func (s *orderState) GetUserByUsername(_ context.Context, username string) (database.User, error) {
	u, ok := s.users[username]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *orderState) CreateAuditLog(_ context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error) {
	s.auditLogs = append(s.auditLogs, arg)
	return database.AuditLog{ID: uuid.New()}, nil
}

func (s *orderState) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (s *orderState) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	var out []database.Order
	for _, o := range s.orders {
		if arg.Status != "" && o.Status != arg.Status {
			continue
		}
		if arg.IsVoided.Valid && o.IsVoided != arg.IsVoided.Bool {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *orderState) GetTransactionByOrder(_ context.Context, orderID uuid.UUID) (database.Transaction, error) {
	return database.Transaction{}, pgx.ErrNoRows
}

// --- Test harness ---

func makeNumeric(t *testing.T, val string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(val); err != nil {
		t.Fatalf("make numeric %q: %v", val, err)
	}
	return n
}

// newOrderRouter builds the public + staff order routes the way the real
// router lays them out.
func newOrderRouter(t *testing.T, state *orderState) http.Handler {
	t.Helper()

	svc := service.NewOrderService(fakePool{}, state, func(db database.DBTX) service.OrderStore {
		return state
	})
	h := handler.NewOrderHandler(svc, state, nil, testSecret)

	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(testSecret))
			h.RegisterRoutes(r)
		})
	})
	return r
}

func seedMenuItem(t *testing.T, state *orderState, price string, stock int32) uuid.UUID {
	t.Helper()
	id := uuid.New()
	state.menuItems[id] = database.MenuItem{
		ID:            id,
		Name:          "Kapeng Barako",
		BasePrice:     makeNumeric(t, price),
		IsAvailable:   true,
		StockQuantity: stock,
	}
	return id
}

func seedAdmin(t *testing.T, state *orderState, username, password string) database.User {
	t.Helper()
	u := database.User{
		ID:             uuid.New(),
		Username:       username,
		FullName:       "Test Admin",
		HashedPassword: hashPassword(t, password),
		Role:           enum.RoleAdmin,
		IsActive:       true,
	}
	state.users[username] = u
	return u
}

func staffToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, uuid.New(), enum.RoleCashier)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func createTestOrder(t *testing.T, router http.Handler, menuItemID uuid.UUID) uuid.UUID {
	t.Helper()
	rr := postJSON(t, router, "/orders", map[string]interface{}{
		"payment_method": "cash",
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID.String(), "quantity": 2},
		},
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create order: got %d, body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	return uuid.MustParse(resp["id"].(string))
}

// --- Create tests ---

func TestCreateOrderEndpoint_Public(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	router := newOrderRouter(t, state)

	// No Authorization header: QR ordering path.
	rr := postJSON(t, router, "/orders", map[string]interface{}{
		"payment_method": "gcash",
		"customer_name":  "Maria",
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID.String(), "quantity": 2},
		},
	}, "")

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["total_amount"] != "300.00" {
		t.Errorf("total_amount: got %v, want 300.00", resp["total_amount"])
	}
	if resp["status"] != "pending" {
		t.Errorf("status: got %v, want pending", resp["status"])
	}

	// Stock decremented and ledger written.
	if got := state.menuItems[menuItemID].StockQuantity; got != 8 {
		t.Errorf("stock: got %d, want 8", got)
	}
	if len(state.invLogs) != 1 || state.invLogs[0].ActionType != "sale" {
		t.Fatalf("expected one sale inventory log, got %+v", state.invLogs)
	}
}

func TestCreateOrderEndpoint_InsufficientStock(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 1)
	router := newOrderRouter(t, state)

	rr := postJSON(t, router, "/orders", map[string]interface{}{
		"payment_method": "cash",
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID.String(), "quantity": 2},
		},
	}, "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if len(state.orders) != 0 {
		t.Error("no order should be persisted on stock failure")
	}
}

func TestCreateOrderEndpoint_EmptyItems(t *testing.T) {
	state := newOrderState()
	router := newOrderRouter(t, state)

	rr := postJSON(t, router, "/orders", map[string]interface{}{
		"payment_method": "cash",
		"items":          []map[string]interface{}{},
	}, "")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Read tests ---

func TestListOrders_RequiresAuth(t *testing.T) {
	state := newOrderState()
	router := newOrderRouter(t, state)

	req := httptest.NewRequest("GET", "/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	state := newOrderState()
	router := newOrderRouter(t, state)

	req := httptest.NewRequest("GET", "/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetOrder_WithItems(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)

	req := httptest.NewRequest("GET", "/orders/"+orderID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", resp["items"])
	}
	item := items[0].(map[string]interface{})
	if item["unit_price"] != "150.00" {
		t.Errorf("unit_price: got %v, want 150.00", item["unit_price"])
	}
}

// --- Status tests ---

func TestUpdateStatusEndpoint(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)

	rr := patchJSON(t, router, "/orders/"+orderID.String()+"/status", map[string]string{
		"status": "ready",
	}, staffToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "ready" {
		t.Errorf("status: got %v, want ready", resp["status"])
	}
}

func TestUpdateStatusEndpoint_VoidedOrder(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)
	o := state.orders[orderID]
	o.IsVoided = true
	state.orders[orderID] = o

	rr := patchJSON(t, router, "/orders/"+orderID.String()+"/status", map[string]string{
		"status": "completed",
	}, staffToken(t))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

// --- Void tests ---

func TestVoidEndpoint_HappyPath(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	seedAdmin(t, state, "boss", "bosspass123")
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)
	if got := state.menuItems[menuItemID].StockQuantity; got != 8 {
		t.Fatalf("stock after sale: got %d, want 8", got)
	}

	rr := postJSON(t, router, "/orders/"+orderID.String()+"/void", map[string]string{
		"void_reason":    "wrong order",
		"admin_username": "boss",
		"admin_password": "bosspass123",
	}, staffToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["is_voided"] != true {
		t.Error("expected is_voided true")
	}

	// Stock restored and adjustment logged.
	if got := state.menuItems[menuItemID].StockQuantity; got != 10 {
		t.Errorf("stock after void: got %d, want 10", got)
	}
	if len(state.invLogs) != 2 || state.invLogs[1].ActionType != "adjustment" {
		t.Fatalf("expected adjustment log after void, got %+v", state.invLogs)
	}
	if len(state.auditLogs) != 1 || state.auditLogs[0].Action != "order.void" {
		t.Fatalf("expected one audit log, got %+v", state.auditLogs)
	}
}

func TestVoidEndpoint_DoubleVoid(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	seedAdmin(t, state, "boss", "bosspass123")
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)

	body := map[string]string{
		"void_reason":    "wrong order",
		"admin_username": "boss",
		"admin_password": "bosspass123",
	}
	if rr := postJSON(t, router, "/orders/"+orderID.String()+"/void", body, staffToken(t)); rr.Code != http.StatusOK {
		t.Fatalf("first void: got %d, body: %s", rr.Code, rr.Body.String())
	}

	rr := postJSON(t, router, "/orders/"+orderID.String()+"/void", body, staffToken(t))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("second void: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	// Stock must only be restored once.
	if got := state.menuItems[menuItemID].StockQuantity; got != 10 {
		t.Errorf("stock after double void: got %d, want 10", got)
	}
}

func TestVoidEndpoint_BadCredentials(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	seedAdmin(t, state, "boss", "bosspass123")
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)

	rr := postJSON(t, router, "/orders/"+orderID.String()+"/void", map[string]string{
		"void_reason":    "wrong order",
		"admin_username": "boss",
		"admin_password": "nope",
	}, staffToken(t))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if got := state.menuItems[menuItemID].StockQuantity; got != 8 {
		t.Errorf("stock must not change on failed void: got %d, want 8", got)
	}
}

func TestVoidEndpoint_MissingReason(t *testing.T) {
	state := newOrderState()
	menuItemID := seedMenuItem(t, state, "150.00", 10)
	seedAdmin(t, state, "boss", "bosspass123")
	router := newOrderRouter(t, state)

	orderID := createTestOrder(t, router, menuItemID)

	rr := postJSON(t, router, "/orders/"+orderID.String()+"/void", map[string]string{
		"admin_username": "boss",
		"admin_password": "bosspass123",
	}, staffToken(t))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
