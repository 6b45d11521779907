package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

// VoidOrderRequest cancels an order after the fact. The admin credentials
// are re-verified even when the caller already holds a valid session, so a
// cashier cannot void on a manager's unattended terminal.
type VoidOrderRequest struct {
	OrderID       uuid.UUID
	VoidReason    string
	AdminUsername string
	AdminPassword string
}

// VoidOrder marks an order voided and restores the stock its items consumed,
// appending an adjustment ledger entry per item. The audit log write happens
// after commit and is best effort: a failure there never undoes the void.
func (s *OrderService) VoidOrder(ctx context.Context, req VoidOrderRequest) (*database.Order, error) {
	if req.VoidReason == "" {
		return nil, ErrVoidReason
	}

	admin, err := s.authenticateAdmin(ctx, req.AdminUsername, req.AdminPassword)
	if err != nil {
		return nil, err
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
		return nil, ErrAlreadyVoided
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	adminID := pgtype.UUID{Bytes: admin.ID, Valid: true}
	for _, item := range items {
		newStock, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
			ID:    item.MenuItemID,
			Delta: item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
		if _, err := store.CreateInventoryLog(ctx, database.CreateInventoryLogParams{
			MenuItemID:       item.MenuItemID,
			ActionType:       enum.InventoryActionAdjustment,
			QuantityChange:   item.Quantity,
			PreviousStock:    newStock - item.Quantity,
			NewStock:         newStock,
			ReferenceOrderID: pgtype.UUID{Bytes: order.ID, Valid: true},
			Notes:            pgtype.Text{String: "void " + order.OrderNumber, Valid: true},
			CreatedBy:        adminID,
		}); err != nil {
			return nil, fmt.Errorf("create inventory log: %w", err)
		}
	}

	voided, err := store.MarkOrderVoided(ctx, database.MarkOrderVoidedParams{
		ID:         order.ID,
		VoidReason: req.VoidReason,
		VoidedBy:   admin.ID,
	})
	if err != nil {
		// The row was locked and checked above; a no-row result here means
		// another void slipped in between, which the lock should prevent.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyVoided
		}
		return nil, fmt.Errorf("mark order voided: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if _, err := s.store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		UserID:  adminID,
		Action:  "order.void",
		Details: pgtype.Text{String: fmt.Sprintf("order %s: %s", voided.OrderNumber, req.VoidReason), Valid: true},
	}); err != nil {
		log.Printf("ERROR: audit log for void of %s: %v", voided.OrderNumber, err)
	}

	return &voided, nil
}

// authenticateAdmin verifies the supplied credentials belong to an active
// owner or admin. Every failure mode collapses to ErrUnauthorized so the
// response never reveals which check failed.
func (s *OrderService) authenticateAdmin(ctx context.Context, username, password string) (database.User, error) {
	if username == "" || password == "" {
		return database.User{}, ErrUnauthorized
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.User{}, ErrUnauthorized
		}
		return database.User{}, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return database.User{}, ErrUnauthorized
	}
	if user.Role != enum.RoleOwner && user.Role != enum.RoleAdmin {
		return database.User{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return database.User{}, ErrUnauthorized
	}
	return user, nil
}
