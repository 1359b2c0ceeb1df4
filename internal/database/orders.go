package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lamoy/api/internal/enum"
)

const createOrder = `
INSERT INTO orders (user_id, delivery_address, total_price, status)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, delivery_address, total_price, status, created_at, updated_at
`

type CreateOrderParams struct {
	UserID          int64
	DeliveryAddress string
	TotalPrice      pgtype.Numeric
	Status          enum.OrderStatus
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.DeliveryAddress,
		arg.TotalPrice,
		arg.Status,
	)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, price_at_purchase)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, menu_item_id, quantity, price_at_purchase
`

type CreateOrderItemParams struct {
	OrderID         int64
	MenuItemID      int64
	Quantity        int32
	PriceAtPurchase pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Quantity,
		arg.PriceAtPurchase,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.PriceAtPurchase)
	return i, err
}

const getOrder = `
SELECT id, user_id, delivery_address, total_price, status, created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrdersByUser = `
SELECT id, user_id, delivery_address, total_price, status, created_at, updated_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.DeliveryAddress, &o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListAllOrders joins the owning user so the admin list shows who placed each
// order without a second round trip.
const listAllOrders = `
SELECT o.id, o.user_id, o.delivery_address, o.total_price, o.status, o.created_at, o.updated_at,
       u.full_name, u.email
FROM orders o
JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC
`

type ListAllOrdersRow struct {
	ID              int64
	UserID          int64
	DeliveryAddress string
	TotalPrice      pgtype.Numeric
	Status          enum.OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CustomerName    string
	CustomerEmail   string
}

func (q *Queries) ListAllOrders(ctx context.Context) ([]ListAllOrdersRow, error) {
	rows, err := q.db.Query(ctx, listAllOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ListAllOrdersRow
	for rows.Next() {
		var r ListAllOrdersRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.DeliveryAddress, &r.TotalPrice, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.CustomerName, &r.CustomerEmail); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOrderItemsByOrder denormalizes the menu item's current name and image at
// read time; only price_at_purchase is stored on the line itself.
const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price_at_purchase,
       m.name, m.image_url
FROM order_items oi
JOIN menu_items m ON m.id = oi.menu_item_id
WHERE oi.order_id = $1
ORDER BY oi.id
`

type ListOrderItemsByOrderRow struct {
	ID              int64
	OrderID         int64
	MenuItemID      int64
	Quantity        int32
	PriceAtPurchase pgtype.Numeric
	ItemName        string
	ItemImageURL    pgtype.Text
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ListOrderItemsByOrderRow
	for rows.Next() {
		var r ListOrderItemsByOrderRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.MenuItemID, &r.Quantity, &r.PriceAtPurchase, &r.ItemName, &r.ItemImageURL); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateOrderStatus is a compare-and-swap: the row is only updated when its
// status still matches the value the caller read. pgx.ErrNoRows on the
// RETURNING scan means a concurrent writer got there first.
const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, user_id, delivery_address, total_price, status, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID         int64
	Status     enum.OrderStatus
	PrevStatus enum.OrderStatus
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.PrevStatus))
}

// CancelOrder enforces the PENDING precondition atomically in SQL.
const cancelOrder = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, user_id, delivery_address, total_price, status, created_at, updated_at
`

func (q *Queries) CancelOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id, enum.OrderStatusCancelled, enum.OrderStatusPending))
}

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.DeliveryAddress, &o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
