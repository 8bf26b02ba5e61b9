package model

import "time"

// Order records a customer's booking for one or more tours or
// activities.  It aggregates the order items bought in a single
// checkout and tracks the lifecycle status, the payment status and
// the money totals.  An order is never hard-deleted; cancellation
// is a terminal status.
//
// Fields:
//  ID                 – primary key identifier.
//  OrderNumber        – unique, human-readable number generated at
//                       creation and immutable afterwards.
//  UserID             – user who placed the order.
//  AgentID            – agent who booked on behalf of the user, if any.
//  Status             – lifecycle status (pending, confirmed, paid,
//                       processing, completed, cancelled, refunded).
//  PaymentStatus      – payment status (unpaid, paid, refunded).
//  SubtotalCents      – sum of item totals at creation time.
//  FeesCents          – service fees in cents.
//  TaxCents           – tax in cents.
//  DiscountCents      – discount in cents.
//  TotalCents         – subtotal + fees + tax − discount; recomputed
//                       on every persist.
//  CommissionCents    – agent commission, zero for direct bookings.
//  Currency           – ISO 4217 currency code.
//  CapacityReserved   – whether confirmed capacity is held for every
//                       capacity-bearing item.
//  CapacityReservedAt – when capacity was confirmed (null until then).
//  Notes              – free-text notes.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Order struct {
	ID                 uint64     // orders.id
	OrderNumber        string     // orders.order_number
	UserID             uint64     // orders.user_id
	AgentID            *uint64    // orders.agent_id (nullable)
	Status             string     // orders.status
	PaymentStatus      string     // orders.payment_status
	SubtotalCents      int64      // orders.subtotal_cents
	FeesCents          int64      // orders.fees_cents
	TaxCents           int64      // orders.tax_cents
	DiscountCents      int64      // orders.discount_cents
	TotalCents         int64      // orders.total_cents
	CommissionCents    int64      // orders.commission_cents
	Currency           string     // orders.currency
	CapacityReserved   bool       // orders.capacity_reserved
	CapacityReservedAt *time.Time // orders.capacity_reserved_at (nullable)
	Notes              string     // orders.notes
	CreatedAt          time.Time  // orders.created_at
	UpdatedAt          time.Time  // orders.updated_at
}

// OrderItem identifies one bookable resource inside an order.  Each
// item belongs to exactly one order and is removed with it.  The
// participant counts are kept so the capacity requirement can be
// recomputed deterministically at any time.
//
// Fields:
//  ID             – primary key identifier.
//  OrderID        – owning order.
//  ProductType    – kind of resource ("tour", "activity", "transfer").
//  ProductID      – identifier of the resource.
//  VariantID      – dated departure of the resource; zero when the
//                   product has a single open variant.
//  BookingDate    – date of service.
//  BookingTime    – optional start time, "HH:MM" or empty.
//  Quantity       – unit count for per-unit products.
//  Adults         – adult participants.
//  Children       – child participants.
//  Infants        – infant participants (never consume capacity).
//  UnitPriceCents – per-unit price supplied by the pricing collaborator.
//  TotalCents     – line total in cents.
//  CreatedAt      – creation timestamp.
type OrderItem struct {
	ID             uint64    // order_items.id
	OrderID        uint64    // order_items.order_id
	ProductType    string    // order_items.product_type
	ProductID      uint64    // order_items.product_id
	VariantID      uint64    // order_items.variant_id
	BookingDate    time.Time // order_items.booking_date
	BookingTime    string    // order_items.booking_time
	Quantity       int       // order_items.quantity
	Adults         int       // order_items.adults
	Children       int       // order_items.children
	Infants        int       // order_items.infants
	UnitPriceCents int64     // order_items.unit_price_cents
	TotalCents     int64     // order_items.total_cents
	CreatedAt      time.Time // order_items.created_at
}

// OrderHistoryEntry is one row of the append-only audit trail.  A
// row records a single field change on an order together with the
// actor responsible and an optional free-text reason.  Rows are
// never updated or deleted.
//
// Fields:
//  ID        – primary key identifier.
//  OrderID   – order the change belongs to.
//  FieldName – name of the changed field (e.g. "status").
//  OldValue  – value before the change.
//  NewValue  – value after the change.
//  Reason    – free-text reason supplied by the actor.
//  ActorID   – user who performed the change (null for system actions).
//  CreatedAt – when the change was recorded.
type OrderHistoryEntry struct {
	ID        uint64    // order_history.id
	OrderID   uint64    // order_history.order_id
	FieldName string    // order_history.field_name
	OldValue  string    // order_history.old_value
	NewValue  string    // order_history.new_value
	Reason    string    // order_history.reason
	ActorID   *uint64   // order_history.actor_id (nullable)
	CreatedAt time.Time // order_history.created_at
}
