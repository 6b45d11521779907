package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const variantColumns = `id, menu_item_id, label, price, is_available, created_at`

func scanVariant(row pgx.Row) (MenuItemVariant, error) {
	var v MenuItemVariant
	err := row.Scan(
		&v.ID,
		&v.MenuItemID,
		&v.Label,
		&v.Price,
		&v.IsAvailable,
		&v.CreatedAt,
	)
	return v, err
}

const getVariant = `SELECT ` + variantColumns + ` FROM menu_item_variants WHERE id = $1`

func (q *Queries) GetVariant(ctx context.Context, id uuid.UUID) (MenuItemVariant, error) {
	return scanVariant(q.db.QueryRow(ctx, getVariant, id))
}

const listVariantsByMenuItem = `SELECT ` + variantColumns + ` FROM menu_item_variants WHERE menu_item_id = $1 ORDER BY label`

func (q *Queries) ListVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]MenuItemVariant, error) {
	rows, err := q.db.Query(ctx, listVariantsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	variants := []MenuItemVariant{}
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

type CreateVariantParams struct {
	MenuItemID  uuid.UUID
	Label       string
	Price       pgtype.Numeric
	IsAvailable bool
}

const createVariant = `
INSERT INTO menu_item_variants (menu_item_id, label, price, is_available)
VALUES ($1, $2, $3, $4)
RETURNING ` + variantColumns

func (q *Queries) CreateVariant(ctx context.Context, arg CreateVariantParams) (MenuItemVariant, error) {
	return scanVariant(q.db.QueryRow(ctx, createVariant,
		arg.MenuItemID,
		arg.Label,
		arg.Price,
		arg.IsAvailable,
	))
}

type UpdateVariantParams struct {
	ID          uuid.UUID
	MenuItemID  uuid.UUID
	Label       string
	Price       pgtype.Numeric
	IsAvailable bool
}

const updateVariant = `
UPDATE menu_item_variants
SET label = $3, price = $4, is_available = $5
WHERE id = $1 AND menu_item_id = $2
RETURNING ` + variantColumns

func (q *Queries) UpdateVariant(ctx context.Context, arg UpdateVariantParams) (MenuItemVariant, error) {
	return scanVariant(q.db.QueryRow(ctx, updateVariant,
		arg.ID,
		arg.MenuItemID,
		arg.Label,
		arg.Price,
		arg.IsAvailable,
	))
}

type DeleteVariantParams struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
}

const deleteVariant = `DELETE FROM menu_item_variants WHERE id = $1 AND menu_item_id = $2`

func (q *Queries) DeleteVariant(ctx context.Context, arg DeleteVariantParams) error {
	tag, err := q.db.Exec(ctx, deleteVariant, arg.ID, arg.MenuItemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
