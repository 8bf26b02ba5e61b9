package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/model"
)

// OrderRepo provides data access to the orders and order_items
// tables.  Mutating methods take an existing transaction in the
// ...Tx style; the caller (normally the Store's unit of work) is
// responsible for committing or rolling back.  Read methods for
// handlers run on the plain connection pool.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, order_number, user_id, agent_id, status, payment_status,
	subtotal_cents, fees_cents, tax_cents, discount_cents, total_cents, commission_cents,
	currency, capacity_reserved, capacity_reserved_at, notes, created_at, updated_at`

const itemColumns = `id, order_id, product_type, product_id, variant_id, booking_date,
	booking_time, quantity, adults, children, infants, unit_price_cents, total_cents, created_at`

// pendingFingerprint builds the value of the UNIQUE
// order_items.pending_fingerprint column.  While the order is
// pending each capacity-bearing item carries the fingerprint of its
// (user, product_type, product_id, booking_date) tuple; the column
// is set to NULL once the order leaves pending (MySQL unique
// indexes admit any number of NULLs).  Two concurrent creates for
// the same tuple therefore collapse into one success and one
// duplicate-key failure at write time, regardless of what the
// application-level pre-check saw.
func pendingFingerprint(userID uint64, productType string, productID uint64, bookingDate time.Time) string {
	return fmt.Sprintf("%d:%s:%d:%s", userID, productType, productID, bookingDate.UTC().Format("2006-01-02"))
}

// isDuplicateKey reports whether err is MySQL error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// CreateTx inserts an order and its items within the provided
// transaction, populating the generated IDs.  Items are inserted
// one at a time so a pending-fingerprint collision can be reported
// as a *booking.DuplicatePendingError naming the exact tuple that
// clashed.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order, items []model.OrderItem) error {
	const q = `INSERT INTO orders (order_number, user_id, agent_id, status, payment_status,
		subtotal_cents, fees_cents, tax_cents, discount_cents, total_cents, commission_cents,
		currency, capacity_reserved, capacity_reserved_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		o.OrderNumber, o.UserID, o.AgentID, o.Status, o.PaymentStatus,
		o.SubtotalCents, o.FeesCents, o.TaxCents, o.DiscountCents, o.TotalCents, o.CommissionCents,
		o.Currency, o.CapacityReserved, o.CapacityReservedAt, o.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	const itemQ = `INSERT INTO order_items (order_id, product_type, product_id, variant_id,
		booking_date, booking_time, quantity, adults, children, infants,
		unit_price_cents, total_cents, pending_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range items {
		items[i].OrderID = o.ID
		var fp interface{}
		if o.Status == booking.StatusPending && booking.IsCapacityBearing(items[i].ProductType) {
			fp = pendingFingerprint(o.UserID, items[i].ProductType, items[i].ProductID, items[i].BookingDate)
		}
		res, err := tx.ExecContext(ctx, itemQ,
			items[i].OrderID, items[i].ProductType, items[i].ProductID, items[i].VariantID,
			items[i].BookingDate.UTC().Format("2006-01-02"), items[i].BookingTime,
			items[i].Quantity, items[i].Adults, items[i].Children, items[i].Infants,
			items[i].UnitPriceCents, items[i].TotalCents, fp)
		if err != nil {
			if isDuplicateKey(err) {
				return &booking.DuplicatePendingError{
					UserID:      o.UserID,
					ProductType: items[i].ProductType,
					ProductID:   items[i].ProductID,
					BookingDate: items[i].BookingDate,
				}
			}
			return err
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		items[i].ID = uint64(itemID)
	}
	return nil
}

// GetForUpdateTx loads an order and its items with the order row
// locked exclusively, serializing concurrent transitions on the
// same order.  Returns booking.ErrOrderNotFound when absent.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, orderID uint64) (*model.Order, []model.OrderItem, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	o, err := scanOrder(tx.QueryRowContext(ctx, q, orderID))
	if err == sql.ErrNoRows {
		return nil, nil, booking.ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	items, err := r.itemsTx(ctx, tx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

// UpdateTx persists an order's mutable columns.  When the order has
// left the pending status the items' pending fingerprints are
// cleared in the same statement batch, freeing the uniqueness slot
// for the user's next booking of the same tuple.
func (r *OrderRepo) UpdateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `UPDATE orders SET status = ?, payment_status = ?,
		subtotal_cents = ?, fees_cents = ?, tax_cents = ?, discount_cents = ?, total_cents = ?,
		commission_cents = ?, capacity_reserved = ?, capacity_reserved_at = ?, notes = ?
		WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q,
		o.Status, o.PaymentStatus,
		o.SubtotalCents, o.FeesCents, o.TaxCents, o.DiscountCents, o.TotalCents,
		o.CommissionCents, o.CapacityReserved, o.CapacityReservedAt, o.Notes,
		o.ID); err != nil {
		return err
	}
	if o.Status != booking.StatusPending {
		if _, err := tx.ExecContext(ctx,
			`UPDATE order_items SET pending_fingerprint = NULL WHERE order_id = ? AND pending_fingerprint IS NOT NULL`,
			o.ID); err != nil {
			return err
		}
	}
	return nil
}

// CountPendingTx returns the user's pending-order count.  The user
// row is locked first so two concurrent creates for the same user
// serialize on it; without the lock both could read (limit-1) and
// both insert, breaching the ceiling.
func (r *OrderRepo) CountPendingTx(ctx context.Context, tx *sql.Tx, userID uint64) (int, error) {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, booking.ErrOrderNotFound
	}
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = ? AND status = ?`,
		userID, booking.StatusPending).Scan(&n)
	return n, err
}

// HasPendingDuplicateTx reports whether the user already has a
// pending order containing the given booking tuple.
func (r *OrderRepo) HasPendingDuplicateTx(ctx context.Context, tx *sql.Tx, userID uint64, productType string, productID uint64, bookingDate time.Time) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = ? AND o.status = ?
		  AND oi.product_type = ? AND oi.product_id = ? AND oi.booking_date = ?)`
	var exists bool
	err := tx.QueryRowContext(ctx, q,
		userID, booking.StatusPending,
		productType, productID, bookingDate.UTC().Format("2006-01-02")).Scan(&exists)
	return exists, err
}

// GetByID loads an order and its items without locking.  Returns
// booking.ErrOrderNotFound when absent.
func (r *OrderRepo) GetByID(ctx context.Context, orderID uint64) (*model.Order, []model.OrderItem, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, orderID))
	if err == sql.ErrNoRows {
		return nil, nil, booking.ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// List returns orders for the admin view, optionally filtered by
// status, newest first.  limit caps the page size.
func (r *OrderRepo) List(ctx context.Context, status string, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		q := `SELECT ` + orderColumns + ` FROM orders WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
		rows, err = r.db.QueryContext(ctx, q, status, limit, offset)
	} else {
		q := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`
		rows, err = r.db.QueryContext(ctx, q, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// items loads the order's items on the connection pool.
func (r *OrderRepo) items(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	q := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// itemsTx loads the order's items inside a transaction.
func (r *OrderRepo) itemsTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderItem, error) {
	q := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// rowScanner lets scanOrder accept both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o          model.Order
		agentID    sql.NullInt64
		reservedAt sql.NullTime
		notes      sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &agentID, &o.Status, &o.PaymentStatus,
		&o.SubtotalCents, &o.FeesCents, &o.TaxCents, &o.DiscountCents, &o.TotalCents, &o.CommissionCents,
		&o.Currency, &o.CapacityReserved, &reservedAt, &notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if agentID.Valid {
		id := uint64(agentID.Int64)
		o.AgentID = &id
	}
	if reservedAt.Valid {
		t := reservedAt.Time
		o.CapacityReservedAt = &t
	}
	if notes.Valid {
		o.Notes = notes.String
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func collectItems(rows *sql.Rows) ([]model.OrderItem, error) {
	defer rows.Close()
	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var (
			it          model.OrderItem
			bookingTime sql.NullString
		)
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductType, &it.ProductID, &it.VariantID, &it.BookingDate,
			&bookingTime, &it.Quantity, &it.Adults, &it.Children, &it.Infants,
			&it.UnitPriceCents, &it.TotalCents, &it.CreatedAt,
		); err != nil {
			return nil, err
		}
		if bookingTime.Valid {
			it.BookingTime = bookingTime.String
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
