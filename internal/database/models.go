package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
	CreatedAt time.Time
}

type MenuItem struct {
	ID                uuid.UUID
	CategoryID        pgtype.UUID
	Name              string
	Description       pgtype.Text
	BasePrice         pgtype.Numeric
	IsAvailable       bool
	StockQuantity     int32
	LowStockThreshold int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MenuItemVariant struct {
	ID          uuid.UUID
	MenuItemID  uuid.UUID
	Label       string
	Price       pgtype.Numeric
	IsAvailable bool
	CreatedAt   time.Time
}

type Order struct {
	ID             uuid.UUID
	OrderNumber    string
	CustomerName   pgtype.Text
	TableNumber    pgtype.Text
	Status         string
	PaymentMethod  string
	TotalAmount    pgtype.Numeric
	DiscountAmount pgtype.Numeric
	CashReceived   pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	IsVoided       bool
	VoidReason     pgtype.Text
	VoidedBy       pgtype.UUID
	VoidedAt       pgtype.Timestamptz
	CreatedBy      pgtype.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	VariantID    pgtype.UUID
	ItemName     string
	VariantLabel pgtype.Text
	Quantity     int32
	UnitPrice    pgtype.Numeric
	TotalPrice   pgtype.Numeric
	CreatedAt    time.Time
}

type Transaction struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InventoryLog struct {
	ID               uuid.UUID
	MenuItemID       uuid.UUID
	ActionType       string
	QuantityChange   int32
	PreviousStock    int32
	NewStock         int32
	ReferenceOrderID pgtype.UUID
	Notes            pgtype.Text
	CreatedBy        pgtype.UUID
	CreatedAt        time.Time
}

type User struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type AuditLog struct {
	ID        uuid.UUID
	UserID    pgtype.UUID
	Action    string
	Details   pgtype.Text
	CreatedAt time.Time
}
