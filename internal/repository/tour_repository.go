package repository

import (
	"context"
	"database/sql"

	"github.com/voyatek/booking-engine/internal/model"
)

// TourRepo provides read access to the tours table.  Tours are
// reference data maintained by back-office tooling; the engine only
// needs to resolve them for validation and the public availability
// endpoint.
type TourRepo struct {
	db *sql.DB
}

// NewTourRepo returns a TourRepo bound to the given database.
func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

// GetByID fetches an active tour.  Returns ErrTourNotFound when the
// tour is missing or deactivated.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (*model.Tour, error) {
	const q = `SELECT id, name, product_type, capacity_mode, is_active, created_at, updated_at
	           FROM tours WHERE id = ? AND is_active = 1`
	var t model.Tour
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.Name, &t.ProductType, &t.CapacityMode, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListActive returns every sellable tour ordered by name.
func (r *TourRepo) ListActive(ctx context.Context) ([]model.Tour, error) {
	const q = `SELECT id, name, product_type, capacity_mode, is_active, created_at, updated_at
	           FROM tours WHERE is_active = 1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tours := make([]model.Tour, 0)
	for rows.Next() {
		var t model.Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.ProductType, &t.CapacityMode, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tours, nil
}
