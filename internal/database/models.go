package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lamoy/api/internal/enum"
)

type User struct {
	ID             int64
	Username       string
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	CreatedAt      time.Time
}

type MenuCategory struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type MenuItem struct {
	ID          int64
	CategoryID  pgtype.Int8
	Name        string
	Description pgtype.Text
	ImageURL    pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID              int64
	UserID          int64
	DeliveryAddress string
	TotalPrice      pgtype.Numeric
	Status          enum.OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID              int64
	OrderID         int64
	MenuItemID      int64
	Quantity        int32
	PriceAtPurchase pgtype.Numeric
}
