package model

import "time"

// Tour represents a bookable product as stored in the `tours` table.
// The engine treats tours as read-only reference data: they are
// created by back-office tooling and consulted here for validation
// and for the public availability endpoint.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the tour.
//  ProductType – capacity classification ("tour", "activity",
//                "transfer"); transfers are per-unit products.
//  CapacityMode– how the capacity requirement is derived, either
//                "participants" (adults+children) or "quantity".
//  IsActive    – whether the tour is currently sellable.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Tour struct {
	ID           uint64    // tours.id
	Name         string    // tours.name
	ProductType  string    // tours.product_type
	CapacityMode string    // tours.capacity_mode
	IsActive     bool      // tours.is_active
	CreatedAt    time.Time // tours.created_at
	UpdatedAt    time.Time // tours.updated_at
}
