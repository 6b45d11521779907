package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type SalesSummaryParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type SalesSummaryRow struct {
	OrderCount    int64
	GrossSales    pgtype.Numeric
	DiscountTotal pgtype.Numeric
	NetSales      pgtype.Numeric
}

// Voided orders are excluded entirely: their stock was restored and their
// revenue never settled.
const salesSummary = `
SELECT COUNT(*),
       COALESCE(SUM(total_amount + discount_amount), 0),
       COALESCE(SUM(discount_amount), 0),
       COALESCE(SUM(total_amount), 0)
FROM orders
WHERE is_voided = false
  AND ($1::timestamptz IS NULL OR created_at >= $1)
  AND ($2::timestamptz IS NULL OR created_at < $2)`

func (q *Queries) SalesSummary(ctx context.Context, arg SalesSummaryParams) (SalesSummaryRow, error) {
	var r SalesSummaryRow
	err := q.db.QueryRow(ctx, salesSummary, arg.StartDate, arg.EndDate).
		Scan(&r.OrderCount, &r.GrossSales, &r.DiscountTotal, &r.NetSales)
	return r, err
}

type UnsoldItemsParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

// Unsold items: menu items with no "sale" ledger entry in the window.
const unsoldItems = `
SELECT ` + menuItemColumns + `
FROM menu_items m
WHERE NOT EXISTS (
	SELECT 1 FROM inventory_logs l
	WHERE l.menu_item_id = m.id
	  AND l.action_type = 'sale'
	  AND ($1::timestamptz IS NULL OR l.created_at >= $1)
	  AND ($2::timestamptz IS NULL OR l.created_at < $2)
)
ORDER BY m.name`

func (q *Queries) UnsoldItems(ctx context.Context, arg UnsoldItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, unsoldItems, arg.StartDate, arg.EndDate)
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
