package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID   = errors.New("invalid menu_item_id")
	ErrInvalidVariantID    = errors.New("invalid variant_id")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrVariantNotFound     = errors.New("variant not found for menu item")
	ErrVariantUnavailable  = errors.New("variant is not available")
	ErrInvalidPayment      = errors.New("invalid payment_method")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderVoided         = errors.New("order is voided")
	ErrAlreadyVoided       = errors.New("order is already voided")
	ErrVoidReason          = errors.New("void_reason is required")
	ErrUnauthorized        = errors.New("invalid admin credentials")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order engine.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItemForUpdate(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetVariant(ctx context.Context, id uuid.UUID) (database.MenuItemVariant, error)
	AdjustMenuItemStock(ctx context.Context, arg database.AdjustMenuItemStockParams) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
	UpsertTransaction(ctx context.Context, arg database.UpsertTransactionParams) (database.Transaction, error)
	CreateInventoryLog(ctx context.Context, arg database.CreateInventoryLogParams) (database.InventoryLog, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderVoided(ctx context.Context, arg database.MarkOrderVoidedParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerName   string
	TableNumber    string
	PaymentMethod  string
	DiscountAmount string // decimal string, flat currency amount
	CashReceived   string
	ChangeAmount   string
	Status         string // optional initial status, defaults to pending
	CreatedBy      uuid.UUID
	Items          []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single cart line.
type CreateOrderItemRequest struct {
	MenuItemID string
	VariantID  string
	Quantity   int32
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles the order lifecycle: create, status transition, void.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore // pool-backed, used outside transactions
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// pricedLine holds a cart line after validation and price resolution.
// unitPrice is the snapshot written to the order item; it is never
// recomputed from the catalog afterwards.
type pricedLine struct {
	menuItemID   uuid.UUID
	variantID    pgtype.UUID
	itemName     string
	variantLabel pgtype.Text
	quantity     int32
	unitPrice    decimal.Decimal
	prevStock    int32
}

// CreateOrder validates the cart, resolves prices, and persists the order,
// its items, the transaction row, the stock decrements, and the inventory
// ledger entries in one atomic transaction. Retries up to
// maxOrderNumberRetries times on order_number unique constraint violations.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	if req.PaymentMethod != enum.PaymentMethodCash && req.PaymentMethod != enum.PaymentMethodGCash {
		return nil, ErrInvalidPayment
	}

	status := req.Status
	if status == "" {
		status = enum.OrderStatusPending
	}
	if !isCreatableStatus(status) {
		return nil, ErrInvalidStatus
	}

	discount, err := parseOptionalAmount(req.DiscountAmount)
	if err != nil || discount.IsNegative() {
		return nil, fmt.Errorf("discount_amount: %w", ErrInvalidAmount)
	}
	cashReceived, err := parseOptionalAmount(req.CashReceived)
	if err != nil {
		return nil, fmt.Errorf("cash_received: %w", ErrInvalidAmount)
	}
	changeAmount, err := parseOptionalAmount(req.ChangeAmount)
	if err != nil {
		return nil, fmt.Errorf("change_amount: %w", ErrInvalidAmount)
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(item.MenuItemID); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		if item.VariantID != "" {
			if _, err := uuid.Parse(item.VariantID); err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidVariantID)
			}
		}
	}

	// Retry loop: handles the order_number unique constraint race where two
	// orders land in the same millisecond with the same random suffix.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, status, discount, cashReceived, changeAmount)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, status string, discount, cashReceived, changeAmount decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Validate and price each line under a row lock ---
	// The FOR UPDATE read serializes concurrent orders on the same item, so
	// the stock check here stays valid through the decrement below.
	subtotal := decimal.Zero
	var lines []pricedLine

	for i, item := range req.Items {
		menuItemID := uuid.MustParse(item.MenuItemID)

		menuItem, err := store.GetMenuItemForUpdate(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("items[%d]: %s: %w", i, menuItem.Name, ErrMenuItemUnavailable)
		}
		if menuItem.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("items[%d]: %s: %w", i, menuItem.Name, ErrInsufficientStock)
		}

		unitPrice := numericToDecimal(menuItem.BasePrice)

		variantID := pgtype.UUID{}
		variantLabel := pgtype.Text{}
		if item.VariantID != "" {
			vid := uuid.MustParse(item.VariantID)
			variant, err := store.GetVariant(ctx, vid)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("items[%d]: %w", i, ErrVariantNotFound)
				}
				return nil, fmt.Errorf("items[%d]: get variant: %w", i, err)
			}
			// A variant of some other menu item is treated as not found.
			if variant.MenuItemID != menuItemID {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrVariantNotFound)
			}
			if !variant.IsAvailable {
				return nil, fmt.Errorf("items[%d]: %s %s: %w", i, menuItem.Name, variant.Label, ErrVariantUnavailable)
			}
			variantID = pgtype.UUID{Bytes: vid, Valid: true}
			variantLabel = pgtype.Text{String: variant.Label, Valid: true}
			unitPrice = numericToDecimal(variant.Price)
		}

		subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))

		lines = append(lines, pricedLine{
			menuItemID:   menuItemID,
			variantID:    variantID,
			itemName:     menuItem.Name,
			variantLabel: variantLabel,
			quantity:     item.Quantity,
			unitPrice:    unitPrice,
			prevStock:    menuItem.StockQuantity,
		})
	}

	// total = max(0, subtotal - discount). The discount arrives as a flat
	// currency amount; percentage schemes are resolved by the client.
	totalAmount := subtotal.Sub(discount)
	if totalAmount.IsNegative() {
		totalAmount = decimal.Zero
	}

	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}
	tableNumber := pgtype.Text{}
	if req.TableNumber != "" {
		tableNumber = pgtype.Text{String: req.TableNumber, Valid: true}
	}
	createdBy := pgtype.UUID{}
	if req.CreatedBy != uuid.Nil {
		createdBy = pgtype.UUID{Bytes: req.CreatedBy, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:    newOrderNumber(),
		CustomerName:   customerName,
		TableNumber:    tableNumber,
		Status:         status,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    decimalToNumeric(totalAmount),
		DiscountAmount: decimalToNumeric(discount),
		CashReceived:   decimalToNumeric(cashReceived),
		ChangeAmount:   decimalToNumeric(changeAmount),
		CreatedBy:      createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items, decrement stock, append ledger ---
	var items []database.OrderItem
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:      order.ID,
			MenuItemID:   line.menuItemID,
			VariantID:    line.variantID,
			ItemName:     line.itemName,
			VariantLabel: line.variantLabel,
			Quantity:     line.quantity,
			UnitPrice:    decimalToNumeric(line.unitPrice),
			TotalPrice:   decimalToNumeric(line.unitPrice.Mul(decimal.NewFromInt32(line.quantity))),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		newStock, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
			ID:    line.menuItemID,
			Delta: -line.quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}

		_, err = store.CreateInventoryLog(ctx, database.CreateInventoryLogParams{
			MenuItemID:       line.menuItemID,
			ActionType:       enum.InventoryActionSale,
			QuantityChange:   -line.quantity,
			PreviousStock:    line.prevStock,
			NewStock:         newStock,
			ReferenceOrderID: pgtype.UUID{Bytes: order.ID, Valid: true},
			CreatedBy:        createdBy,
		})
		if err != nil {
			return nil, fmt.Errorf("create inventory log: %w", err)
		}

		items = append(items, item)
	}

	// --- Insert transaction ---
	if _, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
		OrderID:       order.ID,
		Amount:        decimalToNumeric(totalAmount),
		PaymentMethod: req.PaymentMethod,
	}); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// --- Helpers ---

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newOrderNumber builds ORD-<6 trailing ms digits>-<3 random base36 chars>.
// Collisions fall through to the unique constraint and the retry loop.
func newOrderNumber() string {
	ms := time.Now().UnixMilli() % 1_000_000
	suffix := make([]byte, 3)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%06d-%s", ms, suffix)
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func isCreatableStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusInProgress,
		enum.OrderStatusReady, enum.OrderStatusCompleted:
		return true
	}
	return false
}

// parseOptionalAmount treats "" as zero.
func parseOptionalAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
