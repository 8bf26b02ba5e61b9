package model

import "time"

// CapacitySlot tracks the bookable inventory of one dated departure
// of a tour or activity.  There is exactly one row per
// (resource_id, variant_id) pair and every reservation, confirmation
// and release mutates that row under an exclusive lock.
//
// Fields:
//  ID             – primary key identifier.
//  ResourceID     – the tour or activity this slot belongs to.
//  VariantID      – the dated departure within the resource.
//  SlotDate       – service date of the departure.
//  TotalUnits     – total sellable units for the slot.
//  ReservedUnits  – units under a soft hold, not yet committed.
//  ConfirmedUnits – units permanently sold.
//  CreatedAt      – timestamp when the row was inserted.
//  UpdatedAt      – timestamp of last mutation.
type CapacitySlot struct {
	ID             uint64    // capacity_slots.id
	ResourceID     uint64    // capacity_slots.resource_id
	VariantID      uint64    // capacity_slots.variant_id
	SlotDate       time.Time // capacity_slots.slot_date
	TotalUnits     int       // capacity_slots.total_units
	ReservedUnits  int       // capacity_slots.reserved_units
	ConfirmedUnits int       // capacity_slots.confirmed_units
	CreatedAt      time.Time // capacity_slots.created_at
	UpdatedAt      time.Time // capacity_slots.updated_at
}

// Available returns the number of units still sellable for the slot.
func (s CapacitySlot) Available() int {
	n := s.TotalUnits - s.ReservedUnits - s.ConfirmedUnits
	if n < 0 {
		return 0
	}
	return n
}
