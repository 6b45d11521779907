package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, category_id, name, description, base_price, is_available, stock_quantity, low_stock_threshold, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Description,
		&i.BasePrice,
		&i.IsAvailable,
		&i.StockQuantity,
		&i.LowStockThreshold,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getMenuItem = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

// GetMenuItemForUpdate locks the row so availability and stock checks stay
// valid until the surrounding transaction commits.
const getMenuItemForUpdate = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1 FOR UPDATE`

func (q *Queries) GetMenuItemForUpdate(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItemForUpdate, id))
}

const listMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items ORDER BY name`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listAvailableMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE is_available = true ORDER BY name`

func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listLowStockMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE stock_quantity <= low_stock_threshold ORDER BY stock_quantity`

func (q *Queries) ListLowStockMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listLowStockMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type CreateMenuItemParams struct {
	CategoryID        pgtype.UUID
	Name              string
	Description       pgtype.Text
	BasePrice         pgtype.Numeric
	IsAvailable       bool
	StockQuantity     int32
	LowStockThreshold int32
}

const createMenuItem = `
INSERT INTO menu_items (category_id, name, description, base_price, is_available, stock_quantity, low_stock_threshold)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.BasePrice,
		arg.IsAvailable,
		arg.StockQuantity,
		arg.LowStockThreshold,
	))
}

type UpdateMenuItemParams struct {
	ID                uuid.UUID
	CategoryID        pgtype.UUID
	Name              string
	Description       pgtype.Text
	BasePrice         pgtype.Numeric
	IsAvailable       bool
	LowStockThreshold int32
}

// UpdateMenuItem intentionally does not touch stock_quantity: stock moves
// only through AdjustMenuItemStock so every change lands in inventory_logs.
const updateMenuItem = `
UPDATE menu_items
SET category_id = $2, name = $3, description = $4, base_price = $5, is_available = $6, low_stock_threshold = $7, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.BasePrice,
		arg.IsAvailable,
		arg.LowStockThreshold,
	))
}

type AdjustMenuItemStockParams struct {
	ID    uuid.UUID
	Delta int32
}

const adjustMenuItemStock = `
UPDATE menu_items
SET stock_quantity = stock_quantity + $2, updated_at = now()
WHERE id = $1
RETURNING stock_quantity`

// AdjustMenuItemStock applies a signed stock delta and returns the new level.
func (q *Queries) AdjustMenuItemStock(ctx context.Context, arg AdjustMenuItemStockParams) (int32, error) {
	var stock int32
	err := q.db.QueryRow(ctx, adjustMenuItemStock, arg.ID, arg.Delta).Scan(&stock)
	return stock, err
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = $1`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteMenuItem, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
