package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service. Handlers map these to HTTP status
// codes with errors.Is.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrItemUnavailable   = errors.New("menu item is not available")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrForbidden         = errors.New("access denied")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("order status changed, please retry")
)

// Identity is the resolved caller, taken from the authenticated token and
// never from the request body.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == enum.RoleAdmin
}

// TxBeginner starts a new database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderTxStore defines the DB methods used inside the order-creation
// transaction. Satisfied by *database.Queries bound to a tx.
type OrderTxStore interface {
	GetMenuItemForOrder(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderTxStore creates an OrderTxStore from a DBTX (pool or tx).
type NewOrderTxStore func(db database.DBTX) OrderTxStore

// OrderStore defines the non-transactional DB methods the service needs.
// Satisfied by *database.Queries.
type OrderStore interface {
	GetUserByID(ctx context.Context, id int64) (database.User, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]database.Order, error)
	ListAllOrders(ctx context.Context) ([]database.ListAllOrdersRow, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.ListOrderItemsByOrderRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, id int64) (database.Order, error)
}

// Broadcaster pushes order events to connected back-office clients.
// Satisfied by *ws.Hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastOrderEvent(eventType string, payload any)
}

// CreateOrderRequest is the input for creating an order. UserID and the
// per-item UnitPrice come from the client for backward compatibility with the
// old checkout payload, but neither is trusted: UserID is checked against the
// authenticated identity and UnitPrice is re-derived from the menu.
type CreateOrderRequest struct {
	UserID          int64
	DeliveryAddress string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	MenuItemID int64
	Quantity   int32
	UnitPrice  string
}

// OrderDetail is an order with its lines, item names and images resolved at
// read time.
type OrderDetail struct {
	Order database.Order
	Items []database.ListOrderItemsByOrderRow
}

// OrderService handles order lifecycle business logic: creation with
// server-derived pricing, ownership checks, cancellation, and
// transition-table-validated status updates.
type OrderService struct {
	pool       TxBeginner
	store      OrderStore
	newTxStore NewOrderTxStore
	events     Broadcaster
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(pool TxBeginner, store OrderStore, newTxStore NewOrderTxStore, events Broadcaster) *OrderService {
	return &OrderService{pool: pool, store: store, newTxStore: newTxStore, events: events}
}

// CreateOrder validates the request, prices every line from the authoritative
// menu record, and inserts the order header plus items in one transaction.
// The stored price_at_purchase is the menu price at this moment and is never
// recomputed afterwards.
func (s *OrderService) CreateOrder(ctx context.Context, identity Identity, req CreateOrderRequest) (*OrderDetail, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	// A client-supplied user id that disagrees with the token is ignored,
	// not rejected: old frontend builds still send it.
	if req.UserID != 0 && req.UserID != identity.UserID {
		log.Printf("WARN: create order: body user_id %d ignored in favor of authenticated user %d", req.UserID, identity.UserID)
	}

	if _, err := s.store.GetUserByID(ctx, identity.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newTxStore(tx)

	total := decimal.Zero
	type pricedItem struct {
		menuItemID int64
		quantity   int32
		unitPrice  decimal.Decimal
	}
	priced := make([]pricedItem, 0, len(req.Items))

	for i, item := range req.Items {
		menuItem, err := store.GetMenuItemForOrder(ctx, item.MenuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("items[%d]: %s: %w", i, menuItem.Name, ErrItemUnavailable)
		}

		unitPrice := numericToDecimal(menuItem.Price)
		total = total.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
		priced = append(priced, pricedItem{
			menuItemID: item.MenuItemID,
			quantity:   item.Quantity,
			unitPrice:  unitPrice,
		})
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:          identity.UserID,
		DeliveryAddress: req.DeliveryAddress,
		TotalPrice:      decimalToNumeric(total),
		Status:          enum.OrderStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.ListOrderItemsByOrderRow, 0, len(priced))
	for _, pi := range priced {
		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:         order.ID,
			MenuItemID:      pi.menuItemID,
			Quantity:        pi.quantity,
			PriceAtPurchase: decimalToNumeric(pi.unitPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, database.ListOrderItemsByOrderRow{
			ID:              created.ID,
			OrderID:         created.OrderID,
			MenuItemID:      created.MenuItemID,
			Quantity:        created.Quantity,
			PriceAtPurchase: created.PriceAtPurchase,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.broadcast("order.created", order)

	return &OrderDetail{Order: order, Items: items}, nil
}

// GetOrder returns one order with its lines. The caller must own the order or
// be an admin; the error for a foreign order carries no order data.
func (s *OrderService) GetOrder(ctx context.Context, identity Identity, orderID int64) (*OrderDetail, error) {
	order, err := s.fetchAuthorized(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderDetail{Order: *order, Items: items}, nil
}

// ListOrdersByUser returns a user's orders newest-first, with lines. Only the
// user themselves or an admin may call it.
func (s *OrderService) ListOrdersByUser(ctx context.Context, identity Identity, userID int64) ([]OrderDetail, error) {
	if identity.UserID != userID && !identity.IsAdmin() {
		return nil, ErrForbidden
	}
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	details := make([]OrderDetail, 0, len(orders))
	for _, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		details = append(details, OrderDetail{Order: o, Items: items})
	}
	return details, nil
}

// ListAllOrders returns every order newest-first with customer name and email.
// Admin only.
func (s *OrderService) ListAllOrders(ctx context.Context, identity Identity) ([]database.ListAllOrdersRow, error) {
	if !identity.IsAdmin() {
		return nil, ErrForbidden
	}
	rows, err := s.store.ListAllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return rows, nil
}

// CancelOrder cancels a PENDING order owned by the caller (or any PENDING
// order for an admin). The UPDATE is conditional on the status still being
// PENDING, so two racing writers cannot both win.
func (s *OrderService) CancelOrder(ctx context.Context, identity Identity, orderID int64) (*database.Order, error) {
	order, err := s.fetchAuthorized(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enum.OrderStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, order.Status)
	}

	cancelled, err := s.store.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status moved off PENDING between our read and the write.
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	s.broadcast("order.status_changed", cancelled)
	return &cancelled, nil
}

// UpdateStatus moves an order to newStatus if the transition table allows the
// edge from its current status. Admin only. The write is a compare-and-swap
// on the status that was read, returning ErrStatusConflict on a lost race.
func (s *OrderService) UpdateStatus(ctx context.Context, identity Identity, orderID int64, newStatus enum.OrderStatus) (*database.Order, error) {
	if !identity.IsAdmin() {
		return nil, ErrForbidden
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status", ErrInvalidTransition)
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if !enum.CanTransition(order.Status, newStatus) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, order.Status, newStatus)
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     newStatus,
		PrevStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.broadcast("order.status_changed", updated)
	return &updated, nil
}

// fetchAuthorized loads an order and applies the ownership-or-admin rule.
func (s *OrderService) fetchAuthorized(ctx context.Context, identity Identity, orderID int64) (*database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, ErrForbidden
	}
	return &order, nil
}

func (s *OrderService) broadcast(eventType string, order database.Order) {
	if s.events == nil {
		return
	}
	s.events.BroadcastOrderEvent(eventType, map[string]any{
		"order_id":    order.ID,
		"status":      order.Status.String(),
		"total_price": numericToDecimal(order.TotalPrice).StringFixed(2),
		"updated_at":  order.UpdatedAt,
	})
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
