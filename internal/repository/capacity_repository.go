package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/model"
)

// CapacityRepo provides data access to the capacity_slots table,
// the shared inventory pool behind the booking engine's ledger.
// There is one row per (resource_id, variant_id) pair; a variant is
// one dated departure of a tour or activity.  All mutating methods
// take an existing transaction and lock the slot row exclusively
// with SELECT ... FOR UPDATE, so concurrent reservation attempts on
// the same slot serialize for the transaction's duration and the
// read-check-write can never interleave with another caller's.
type CapacityRepo struct {
	db *sql.DB
}

// NewCapacityRepo returns a CapacityRepo bound to the given database.
func NewCapacityRepo(db *sql.DB) *CapacityRepo { return &CapacityRepo{db: db} }

// Available returns the sellable unit count without taking a lock.
// It is the read used by the public availability endpoint; callers
// that intend to mutate must go through the Tx methods instead,
// which re-validate under the row lock.
func (r *CapacityRepo) Available(ctx context.Context, resourceID, variantID uint64) (int, error) {
	const q = `SELECT total_units, reserved_units, confirmed_units
	           FROM capacity_slots WHERE resource_id = ? AND variant_id = ?`
	var total, reserved, confirmed int
	err := r.db.QueryRowContext(ctx, q, resourceID, variantID).Scan(&total, &reserved, &confirmed)
	if err == sql.ErrNoRows {
		return 0, booking.ErrSlotNotFound
	}
	if err != nil {
		return 0, err
	}
	n := total - reserved - confirmed
	if n < 0 {
		n = 0
	}
	return n, nil
}

// lockSlotTx loads the slot row under an exclusive lock.  The lock
// is held until the surrounding transaction commits or rolls back.
func (r *CapacityRepo) lockSlotTx(ctx context.Context, tx *sql.Tx, resourceID, variantID uint64) (*model.CapacitySlot, error) {
	const q = `SELECT id, resource_id, variant_id, slot_date, total_units, reserved_units, confirmed_units
	           FROM capacity_slots WHERE resource_id = ? AND variant_id = ? FOR UPDATE`
	var s model.CapacitySlot
	err := tx.QueryRowContext(ctx, q, resourceID, variantID).Scan(
		&s.ID, &s.ResourceID, &s.VariantID, &s.SlotDate,
		&s.TotalUnits, &s.ReservedUnits, &s.ConfirmedUnits,
	)
	if err == sql.ErrNoRows {
		return nil, booking.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AvailableTx returns the sellable unit count under the row lock.
func (r *CapacityRepo) AvailableTx(ctx context.Context, tx *sql.Tx, resourceID, variantID uint64) (int, error) {
	s, err := r.lockSlotTx(ctx, tx, resourceID, variantID)
	if err != nil {
		return 0, err
	}
	return s.Available(), nil
}

// ReserveTx places a soft hold on units.  The slot row is locked,
// availability is re-checked under the lock, and reserved_units is
// incremented.  Returns *booking.InsufficientCapacityError when the
// slot cannot cover the request; the caller's transaction should
// then roll back.
func (r *CapacityRepo) ReserveTx(ctx context.Context, tx *sql.Tx, resourceID, variantID uint64, units int) error {
	if units <= 0 {
		return nil
	}
	s, err := r.lockSlotTx(ctx, tx, resourceID, variantID)
	if err != nil {
		return err
	}
	if s.Available() < units {
		return &booking.InsufficientCapacityError{
			ResourceID: resourceID,
			VariantID:  variantID,
			Requested:  units,
			Available:  s.Available(),
		}
	}
	return r.writeCountsTx(ctx, tx, s.ID, s.ReservedUnits+units, s.ConfirmedUnits)
}

// ConfirmTx permanently decrements units.  Like ReserveTx it
// re-validates under the row lock, so two checkouts racing for the
// last unit resolve to exactly one success.  Units held by other
// callers count as unavailable; a caller converting its own hold
// must release that hold in the same transaction before confirming.
func (r *CapacityRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, resourceID, variantID uint64, units int) error {
	if units <= 0 {
		return nil
	}
	s, err := r.lockSlotTx(ctx, tx, resourceID, variantID)
	if err != nil {
		return err
	}
	if s.Available() < units {
		return &booking.InsufficientCapacityError{
			ResourceID: resourceID,
			VariantID:  variantID,
			Requested:  units,
			Available:  s.Available(),
		}
	}
	return r.writeCountsTx(ctx, tx, s.ID, s.ReservedUnits, s.ConfirmedUnits+units)
}

// ReleaseTx returns units to the pool, draining the soft-hold count
// before the confirmed count.  Releasing more than is outstanding
// is a safe no-op for the excess: counts are clamped at zero so the
// slot can never exceed its configured total.
func (r *CapacityRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, resourceID, variantID uint64, units int) error {
	if units <= 0 {
		return nil
	}
	s, err := r.lockSlotTx(ctx, tx, resourceID, variantID)
	if err != nil {
		return err
	}
	fromReserved := units
	if fromReserved > s.ReservedUnits {
		fromReserved = s.ReservedUnits
	}
	fromConfirmed := units - fromReserved
	if fromConfirmed > s.ConfirmedUnits {
		fromConfirmed = s.ConfirmedUnits
	}
	return r.writeCountsTx(ctx, tx, s.ID, s.ReservedUnits-fromReserved, s.ConfirmedUnits-fromConfirmed)
}

// writeCountsTx persists the new counters for a locked slot row.
func (r *CapacityRepo) writeCountsTx(ctx context.Context, tx *sql.Tx, slotID uint64, reserved, confirmed int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE capacity_slots SET reserved_units = ?, confirmed_units = ? WHERE id = ?`,
		reserved, confirmed, slotID)
	return err
}

// CreateTx inserts a capacity slot.  Used by back-office tooling
// and tests; the engine itself only mutates the counters.
func (r *CapacityRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.CapacitySlot) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO capacity_slots (resource_id, variant_id, slot_date, total_units, reserved_units, confirmed_units)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ResourceID, s.VariantID, s.SlotDate.UTC().Format("2006-01-02"),
		s.TotalUnits, s.ReservedUnits, s.ConfirmedUnits)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt = time.Now().UTC()
	return nil
}
