package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// UpdateStatusRequest amends an order's status and, optionally, its
// settlement fields. Empty strings mean "leave unchanged".
type UpdateStatusRequest struct {
	OrderID        uuid.UUID
	Status         string
	TotalAmount    string
	DiscountAmount string
	CashReceived   string
	ChangeAmount   string
	PaymentMethod  string
}

// UpdateStatus moves an order to a new status. Any status can move to any
// other status except that voided orders are frozen; the counter flow is
// too messy for a strict state machine (a "ready" coffee goes back on the
// bar, a "completed" order gets reopened to add a pastry).
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*database.Order, error) {
	if !isValidStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.PaymentMethod != "" &&
		req.PaymentMethod != enum.PaymentMethodCash && req.PaymentMethod != enum.PaymentMethodGCash {
		return nil, ErrInvalidPayment
	}

	total, err := parseNullableAmount(req.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("total_amount: %w", ErrInvalidAmount)
	}
	discount, err := parseNullableAmount(req.DiscountAmount)
	if err != nil {
		return nil, fmt.Errorf("discount_amount: %w", ErrInvalidAmount)
	}
	cashReceived, err := parseNullableAmount(req.CashReceived)
	if err != nil {
		return nil, fmt.Errorf("cash_received: %w", ErrInvalidAmount)
	}
	changeAmount, err := parseNullableAmount(req.ChangeAmount)
	if err != nil {
		return nil, fmt.Errorf("change_amount: %w", ErrInvalidAmount)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.IsVoided {
		return nil, ErrOrderVoided
	}

	paymentMethod := pgtype.Text{}
	if req.PaymentMethod != "" {
		paymentMethod = pgtype.Text{String: req.PaymentMethod, Valid: true}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             req.OrderID,
		Status:         req.Status,
		TotalAmount:    total,
		DiscountAmount: discount,
		CashReceived:   cashReceived,
		ChangeAmount:   changeAmount,
		PaymentMethod:  paymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	// Settling an order keeps the transaction row in sync with the final
	// amount and payment method.
	if req.Status == enum.OrderStatusCompleted {
		method := updated.PaymentMethod
		if req.PaymentMethod != "" {
			method = req.PaymentMethod
		}
		if _, err := store.UpsertTransaction(ctx, database.UpsertTransactionParams{
			OrderID:       updated.ID,
			Amount:        updated.TotalAmount,
			PaymentMethod: method,
		}); err != nil {
			return nil, fmt.Errorf("upsert transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

func isValidStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusInProgress,
		enum.OrderStatusReady, enum.OrderStatusCompleted:
		return true
	}
	return false
}

// parseNullableAmount returns an invalid Numeric for "", which the COALESCE
// in the update query treats as "keep the current value".
func parseNullableAmount(s string) (pgtype.Numeric, error) {
	if s == "" {
		return pgtype.Numeric{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	return decimalToNumeric(d), nil
}
