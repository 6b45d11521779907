package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusReady      = "ready"
	OrderStatusCompleted  = "completed"
	OrderStatusVoided     = "voided"
)

const (
	InventoryActionSale       = "sale"
	InventoryActionRestock    = "restock"
	InventoryActionAdjustment = "adjustment"
)

// ── Roles and payment methods (CHECK constrained in DB) ──

const (
	RoleOwner   = "OWNER"
	RoleAdmin   = "ADMIN"
	RoleCashier = "CASHIER"
)

const (
	PaymentMethodCash  = "cash"
	PaymentMethodGCash = "gcash"
)
