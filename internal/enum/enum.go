package enum

import "fmt"

// OrderStatus is stored as a SMALLINT code in the orders table.
// The numeric values are part of the persisted schema; do not reorder.
type OrderStatus int16

const (
	OrderStatusPending   OrderStatus = 1
	OrderStatusPreparing OrderStatus = 2
	OrderStatusReady     OrderStatus = 3
	OrderStatusDelivered OrderStatus = 4
	OrderStatusCancelled OrderStatus = 5
)

var statusNames = map[OrderStatus]string{
	OrderStatusPending:   "PENDING",
	OrderStatusPreparing: "PREPARING",
	OrderStatusReady:     "READY",
	OrderStatusDelivered: "DELIVERED",
	OrderStatusCancelled: "CANCELLED",
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int16(s))
}

// Valid reports whether s is one of the five defined status codes.
func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseOrderStatus maps an upper-case status name to its code.
func ParseOrderStatus(name string) (OrderStatus, error) {
	for code, n := range statusNames {
		if n == name {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", name)
}

// AllOrderStatuses lists every status in code order. The dashboard status
// distribution reports a row for each, including zero counts.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// allowedTransitions defines the legal status edges. Key is current status,
// value is the set of statuses it can move to. DELIVERED and CANCELLED are
// terminal. Every mutation path consults this table; there is no bypass.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from current to next.
func CanTransition(current, next OrderStatus) bool {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)
