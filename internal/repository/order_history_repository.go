package repository

import (
	"context"
	"database/sql"

	"github.com/voyatek/booking-engine/internal/model"
)

// OrderHistoryRepo provides access to the order_history table, the
// append-only audit trail.  Rows are only ever inserted; there is
// deliberately no update or delete method on this type.
type OrderHistoryRepo struct {
	db *sql.DB
}

// NewOrderHistoryRepo returns an OrderHistoryRepo bound to the
// given database.
func NewOrderHistoryRepo(db *sql.DB) *OrderHistoryRepo { return &OrderHistoryRepo{db: db} }

// AppendTx inserts one audit entry within the provided transaction,
// so a rolled-back mutation leaves no audit residue.
func (r *OrderHistoryRepo) AppendTx(ctx context.Context, tx *sql.Tx, e model.OrderHistoryEntry) error {
	const q = `INSERT INTO order_history (order_id, field_name, old_value, new_value, reason, actor_id)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, e.OrderID, e.FieldName, e.OldValue, e.NewValue, e.Reason, e.ActorID)
	return err
}

// ListByOrder returns the order's audit trail, oldest first.
func (r *OrderHistoryRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.OrderHistoryEntry, error) {
	const q = `SELECT id, order_id, field_name, old_value, new_value, reason, actor_id, created_at
	           FROM order_history WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.OrderHistoryEntry, 0)
	for rows.Next() {
		var (
			e       model.OrderHistoryEntry
			actorID sql.NullInt64
			reason  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FieldName, &e.OldValue, &e.NewValue, &reason, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			id := uint64(actorID.Int64)
			e.ActorID = &id
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
