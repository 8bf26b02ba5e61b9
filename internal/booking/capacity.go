package booking

import "github.com/voyatek/booking-engine/internal/model"

// Product types the engine understands.  Tours and activities are
// age-structured: capacity follows the participant counts.
// Transfers sell whole units (a vehicle, a ticket).  Extras are
// unconstrained add-ons (insurance, photo package) and never touch
// the capacity ledger.
const (
	ProductTour     = "tour"
	ProductActivity = "activity"
	ProductTransfer = "transfer"
	ProductExtra    = "extra"
)

// IsCapacityBearing reports whether items of this product type
// consume finite shared inventory.
func IsCapacityBearing(productType string) bool {
	switch productType {
	case ProductTour, ProductActivity, ProductTransfer:
		return true
	}
	return false
}

// CapacityUnits computes the number of capacity units an order item
// requires.  For age-structured products this is adults + children;
// infants travel on a lap and are excluded.  Per-unit products
// require their quantity.  Non capacity-bearing items require zero.
//
// The function is pure: no I/O, no side effects.  The guard phase
// and the confirm phase both call it, so the two can never disagree
// about what an item needs.
func CapacityUnits(item model.OrderItem) int {
	if !IsCapacityBearing(item.ProductType) {
		return 0
	}
	if item.ProductType == ProductTransfer {
		if item.Quantity < 0 {
			return 0
		}
		return item.Quantity
	}
	units := item.Adults + item.Children
	if units < 0 {
		return 0
	}
	return units
}
