package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_name, table_number, status, payment_method, total_amount, discount_amount, cash_received, change_amount, is_voided, void_reason, voided_by, voided_at, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerName,
		&o.TableNumber,
		&o.Status,
		&o.PaymentMethod,
		&o.TotalAmount,
		&o.DiscountAmount,
		&o.CashReceived,
		&o.ChangeAmount,
		&o.IsVoided,
		&o.VoidReason,
		&o.VoidedBy,
		&o.VoidedAt,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber    string
	CustomerName   pgtype.Text
	TableNumber    pgtype.Text
	Status         string
	PaymentMethod  string
	TotalAmount    pgtype.Numeric
	DiscountAmount pgtype.Numeric
	CashReceived   pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	CreatedBy      pgtype.UUID
}

const createOrder = `
INSERT INTO orders (order_number, customer_name, table_number, status, payment_method, total_amount, discount_amount, cash_received, change_amount, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerName,
		arg.TableNumber,
		arg.Status,
		arg.PaymentMethod,
		arg.TotalAmount,
		arg.DiscountAmount,
		arg.CashReceived,
		arg.ChangeAmount,
		arg.CreatedBy,
	))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// GetOrderForUpdate locks the order row so void and status checks cannot
// interleave with a concurrent mutation.
const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	Status    string
	IsVoided  pgtype.Bool
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1 = '' OR status = $1)
  AND ($2::boolean IS NULL OR is_voided = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.IsVoided,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID             uuid.UUID
	Status         string
	TotalAmount    pgtype.Numeric
	DiscountAmount pgtype.Numeric
	CashReceived   pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	PaymentMethod  pgtype.Text
}

// Amended fields are NULL when the caller did not supply them; COALESCE
// keeps the stored value in that case.
const updateOrderStatus = `
UPDATE orders
SET status = $2,
    total_amount = COALESCE($3, total_amount),
    discount_amount = COALESCE($4, discount_amount),
    cash_received = COALESCE($5, cash_received),
    change_amount = COALESCE($6, change_amount),
    payment_method = COALESCE($7, payment_method),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.Status,
		arg.TotalAmount,
		arg.DiscountAmount,
		arg.CashReceived,
		arg.ChangeAmount,
		arg.PaymentMethod,
	))
}

type MarkOrderVoidedParams struct {
	ID         uuid.UUID
	VoidReason string
	VoidedBy   uuid.UUID
}

const markOrderVoided = `
UPDATE orders
SET is_voided = true,
    status = 'voided',
    void_reason = $2,
    voided_by = $3,
    voided_at = now(),
    updated_at = now()
WHERE id = $1 AND is_voided = false
RETURNING ` + orderColumns

// MarkOrderVoided flips the order into its terminal voided state. The
// is_voided = false guard makes a double void surface as pgx.ErrNoRows.
func (q *Queries) MarkOrderVoided(ctx context.Context, arg MarkOrderVoidedParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderVoided, arg.ID, arg.VoidReason, arg.VoidedBy))
}

// --- Order items ---

const orderItemColumns = `id, order_id, menu_item_id, variant_id, item_name, variant_label, quantity, unit_price, total_price, created_at`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.VariantID,
		&i.ItemName,
		&i.VariantLabel,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.CreatedAt,
	)
	return i, err
}

type CreateOrderItemParams struct {
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	VariantID    pgtype.UUID
	ItemName     string
	VariantLabel pgtype.Text
	Quantity     int32
	UnitPrice    pgtype.Numeric
	TotalPrice   pgtype.Numeric
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, variant_id, item_name, variant_label, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.VariantID,
		arg.ItemName,
		arg.VariantLabel,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
	))
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
