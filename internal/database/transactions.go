package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, order_id, amount, payment_method, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.Amount,
		&t.PaymentMethod,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

type CreateTransactionParams struct {
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
}

const createTransaction = `
INSERT INTO transactions (order_id, amount, payment_method)
VALUES ($1, $2, $3)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, createTransaction,
		arg.OrderID,
		arg.Amount,
		arg.PaymentMethod,
	))
}

type UpsertTransactionParams struct {
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
}

// UpsertTransaction overwrites the settled amount and method when an order
// completes with amended figures; creates the row if it is somehow missing.
const upsertTransaction = `
INSERT INTO transactions (order_id, amount, payment_method)
VALUES ($1, $2, $3)
ON CONFLICT (order_id) DO UPDATE
SET amount = EXCLUDED.amount, payment_method = EXCLUDED.payment_method, updated_at = now()
RETURNING ` + transactionColumns

func (q *Queries) UpsertTransaction(ctx context.Context, arg UpsertTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, upsertTransaction,
		arg.OrderID,
		arg.Amount,
		arg.PaymentMethod,
	))
}

const getTransactionByOrder = `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = $1`

func (q *Queries) GetTransactionByOrder(ctx context.Context, orderID uuid.UUID) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getTransactionByOrder, orderID))
}
