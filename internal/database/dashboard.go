package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lamoy/api/internal/enum"
)

// Dashboard aggregation queries. All of these exclude or include cancelled
// orders deliberately per query; see the comments on each.

// GetSalesSummary excludes cancelled orders: a cancelled order never counted
// as a sale.
const getSalesSummary = `
SELECT COALESCE(SUM(total_price), 0), COUNT(*)
FROM orders
WHERE status <> $1
`

type GetSalesSummaryRow struct {
	TotalSales  pgtype.Numeric
	TotalOrders int64
}

func (q *Queries) GetSalesSummary(ctx context.Context) (GetSalesSummaryRow, error) {
	row := q.db.QueryRow(ctx, getSalesSummary, enum.OrderStatusCancelled)
	var r GetSalesSummaryRow
	err := row.Scan(&r.TotalSales, &r.TotalOrders)
	return r, err
}

// GetSalesBetween sums non-cancelled sales in [Start, End).
const getSalesBetween = `
SELECT COALESCE(SUM(total_price), 0)
FROM orders
WHERE status <> $1 AND created_at >= $2 AND created_at < $3
`

type GetSalesBetweenParams struct {
	Start time.Time
	End   time.Time
}

func (q *Queries) GetSalesBetween(ctx context.Context, arg GetSalesBetweenParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getSalesBetween, enum.OrderStatusCancelled, arg.Start, arg.End)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

// GetDailySales groups non-cancelled sales by UTC calendar day since the
// given cutoff. Days with no sales produce no row; the service fills gaps.
const getDailySales = `
SELECT (created_at AT TIME ZONE 'UTC')::date AS sale_date, COALESCE(SUM(total_price), 0)
FROM orders
WHERE status <> $1 AND created_at >= $2
GROUP BY sale_date
ORDER BY sale_date
`

type GetDailySalesRow struct {
	SaleDate pgtype.Date
	Total    pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, since time.Time) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, enum.OrderStatusCancelled, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.SaleDate, &r.Total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStatusCounts includes cancelled orders: the distribution chart shows the
// whole order book, unlike the sales totals.
const getStatusCounts = `
SELECT status, COUNT(*)
FROM orders
GROUP BY status
`

type GetStatusCountsRow struct {
	Status enum.OrderStatus
	Count  int64
}

func (q *Queries) GetStatusCounts(ctx context.Context) ([]GetStatusCountsRow, error) {
	rows, err := q.db.Query(ctx, getStatusCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetStatusCountsRow
	for rows.Next() {
		var r GetStatusCountsRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRecentOrders returns the newest orders regardless of status. LEFT JOIN:
// the customer may be absent for imported or guest orders.
const listRecentOrders = `
SELECT o.id, o.total_price, o.status, o.created_at, u.full_name
FROM orders o
LEFT JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC
LIMIT $1
`

type ListRecentOrdersRow struct {
	ID           int64
	TotalPrice   pgtype.Numeric
	Status       enum.OrderStatus
	CreatedAt    time.Time
	CustomerName pgtype.Text
}

func (q *Queries) ListRecentOrders(ctx context.Context, limit int32) ([]ListRecentOrdersRow, error) {
	rows, err := q.db.Query(ctx, listRecentOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ListRecentOrdersRow
	for rows.Next() {
		var r ListRecentOrdersRow
		if err := rows.Scan(&r.ID, &r.TotalPrice, &r.Status, &r.CreatedAt, &r.CustomerName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
