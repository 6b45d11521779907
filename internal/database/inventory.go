package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryLogColumns = `id, menu_item_id, action_type, quantity_change, previous_stock, new_stock, reference_order_id, notes, created_by, created_at`

func scanInventoryLog(row pgx.Row) (InventoryLog, error) {
	var l InventoryLog
	err := row.Scan(
		&l.ID,
		&l.MenuItemID,
		&l.ActionType,
		&l.QuantityChange,
		&l.PreviousStock,
		&l.NewStock,
		&l.ReferenceOrderID,
		&l.Notes,
		&l.CreatedBy,
		&l.CreatedAt,
	)
	return l, err
}

type CreateInventoryLogParams struct {
	MenuItemID       uuid.UUID
	ActionType       string
	QuantityChange   int32
	PreviousStock    int32
	NewStock         int32
	ReferenceOrderID pgtype.UUID
	Notes            pgtype.Text
	CreatedBy        pgtype.UUID
}

const createInventoryLog = `
INSERT INTO inventory_logs (menu_item_id, action_type, quantity_change, previous_stock, new_stock, reference_order_id, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + inventoryLogColumns

// CreateInventoryLog appends a ledger entry. Rows are never updated or
// deleted; this is the sole audit trail for stock movement.
func (q *Queries) CreateInventoryLog(ctx context.Context, arg CreateInventoryLogParams) (InventoryLog, error) {
	return scanInventoryLog(q.db.QueryRow(ctx, createInventoryLog,
		arg.MenuItemID,
		arg.ActionType,
		arg.QuantityChange,
		arg.PreviousStock,
		arg.NewStock,
		arg.ReferenceOrderID,
		arg.Notes,
		arg.CreatedBy,
	))
}

type ListInventoryLogsParams struct {
	MenuItemID pgtype.UUID
	ActionType string
	Limit      int32
	Offset     int32
}

const listInventoryLogs = `
SELECT ` + inventoryLogColumns + `
FROM inventory_logs
WHERE ($1::uuid IS NULL OR menu_item_id = $1)
  AND ($2 = '' OR action_type = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListInventoryLogs(ctx context.Context, arg ListInventoryLogsParams) ([]InventoryLog, error) {
	rows, err := q.db.Query(ctx, listInventoryLogs,
		arg.MenuItemID,
		arg.ActionType,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := []InventoryLog{}
	for rows.Next() {
		l, err := scanInventoryLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
