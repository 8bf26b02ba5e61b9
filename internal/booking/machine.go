package booking

import (
	"context"
	"strconv"
	"time"

	"github.com/voyatek/booking-engine/internal/model"
)

// StateMachine advances an order along the lifecycle edges and
// performs the matching capacity ledger operations.  It must be
// driven inside a unit of work: ledger mutations, the order update
// and the audit entries commit or roll back together, so a failed
// transition leaves zero side effects.
type StateMachine struct {
	now func() time.Time
}

// NewStateMachine returns a machine using the wall clock.
func NewStateMachine() *StateMachine {
	return &StateMachine{now: func() time.Time { return time.Now().UTC() }}
}

// Transition moves order to target and persists the result through
// uow.  Rules:
//
//   - target equal to the current status is a successful no-op: no
//     ledger call, no history entry, no update.  Retried client
//     requests therefore never double-reserve or double-release.
//   - an edge missing from the lifecycle table fails with an
//     *InvalidTransitionError.
//   - entering confirmed or paid confirms capacity for every
//     capacity-bearing item unless the order already holds it; the
//     first InsufficientCapacityError aborts the whole transition.
//   - entering cancelled or refunded releases exactly the units the
//     order had confirmed; a pending order releases nothing.
//
// One history entry is appended per changed field.
func (m *StateMachine) Transition(ctx context.Context, uow UnitOfWork, order *model.Order, items []model.OrderItem, target string, actorID *uint64, reason string) error {
	if !ValidStatus(target) {
		return &ValidationError{Msg: "unknown status " + strconv.Quote(target)}
	}
	if order.Status == target {
		return nil
	}
	if !CanTransition(order.Status, target) {
		return &InvalidTransitionError{From: order.Status, To: target}
	}

	prevStatus := order.Status
	prevPayment := order.PaymentStatus
	prevReserved := order.CapacityReserved

	switch target {
	case StatusConfirmed:
		// A pending order must not already hold confirmed capacity.
		if order.CapacityReserved {
			return &ValidationError{Msg: "pending order already holds capacity"}
		}
		if err := m.confirmCapacity(ctx, uow.Ledger(), order, items); err != nil {
			return err
		}
	case StatusPaid:
		// Confirm is a no-op when the confirmed edge already ran.
		if !order.CapacityReserved {
			if err := m.confirmCapacity(ctx, uow.Ledger(), order, items); err != nil {
				return err
			}
		}
		order.PaymentStatus = PaymentPaid
	case StatusCancelled:
		if err := m.releaseCapacity(ctx, uow.Ledger(), order, items); err != nil {
			return err
		}
	case StatusRefunded:
		if err := m.releaseCapacity(ctx, uow.Ledger(), order, items); err != nil {
			return err
		}
		order.PaymentStatus = PaymentRefunded
	case StatusProcessing, StatusCompleted:
		// Fulfilment milestones; no ledger effect.
	}

	order.Status = target
	// The money invariant is re-established on every persist.
	order.TotalCents = order.SubtotalCents + order.FeesCents + order.TaxCents - order.DiscountCents
	order.UpdatedAt = m.now()

	if err := uow.Orders().Update(ctx, order); err != nil {
		return err
	}

	changes := []model.OrderHistoryEntry{{
		OrderID:   order.ID,
		FieldName: "status",
		OldValue:  prevStatus,
		NewValue:  order.Status,
		Reason:    reason,
		ActorID:   actorID,
	}}
	if order.PaymentStatus != prevPayment {
		changes = append(changes, model.OrderHistoryEntry{
			OrderID:   order.ID,
			FieldName: "payment_status",
			OldValue:  prevPayment,
			NewValue:  order.PaymentStatus,
			Reason:    reason,
			ActorID:   actorID,
		})
	}
	if order.CapacityReserved != prevReserved {
		changes = append(changes, model.OrderHistoryEntry{
			OrderID:   order.ID,
			FieldName: "capacity_reserved",
			OldValue:  strconv.FormatBool(prevReserved),
			NewValue:  strconv.FormatBool(order.CapacityReserved),
			Reason:    reason,
			ActorID:   actorID,
		})
	}
	for _, entry := range changes {
		if err := uow.History().Append(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// confirmCapacity permanently decrements the ledger for every
// capacity-bearing item and marks the order as holding capacity.
// The calculator is the same one the guard phase used, so the two
// phases can never disagree about what an item needs.
func (m *StateMachine) confirmCapacity(ctx context.Context, ledger CapacityLedger, order *model.Order, items []model.OrderItem) error {
	for _, it := range items {
		units := CapacityUnits(it)
		if units == 0 {
			continue
		}
		if err := ledger.Confirm(ctx, it.ProductID, it.VariantID, units); err != nil {
			return err
		}
	}
	at := m.now()
	order.CapacityReserved = true
	order.CapacityReservedAt = &at
	return nil
}

// releaseCapacity returns every confirmed unit to the ledger.  An
// order that never confirmed capacity (still pending) releases
// nothing, and the flag is cleared so a later inspection cannot
// mistake the order for one still holding inventory.
func (m *StateMachine) releaseCapacity(ctx context.Context, ledger CapacityLedger, order *model.Order, items []model.OrderItem) error {
	if order.CapacityReserved {
		for _, it := range items {
			units := CapacityUnits(it)
			if units == 0 {
				continue
			}
			if err := ledger.Release(ctx, it.ProductID, it.VariantID, units); err != nil {
				return err
			}
		}
	}
	order.CapacityReserved = false
	order.CapacityReservedAt = nil
	return nil
}
