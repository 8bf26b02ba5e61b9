// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderConfirmedEvent is published when an order has capacity
// confirmed against the ledger, either by an explicit confirm or by
// an immediate payment.  It carries enough for downstream consumers
// to log, notify, or feed analytics without querying the database.
type OrderConfirmedEvent struct {
	OrderID       uint64 `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	UserID        uint64 `json:"user_id"`
	AgentID       uint64 `json:"agent_id,omitempty"`
	Status        string `json:"status"`
	TotalCents    int64  `json:"total_cents"`
	Currency      string `json:"currency"`
	CapacityUnits int    `json:"capacity_units"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// OrderCancelledEvent is published when an order is cancelled or
// refunded.  Refunded reports whether payment was returned.
type OrderCancelledEvent struct {
	OrderID     uint64 `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      uint64 `json:"user_id"`
	Reason      string `json:"reason,omitempty"`
	Refunded    bool   `json:"refunded"`
	CancelledAt string `json:"cancelled_at"`
}
