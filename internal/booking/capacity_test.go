package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voyatek/booking-engine/internal/model"
)

func TestCapacityUnitsExcludesInfants(t *testing.T) {
	item := model.OrderItem{ProductType: ProductTour, Adults: 2, Children: 0, Infants: 1}
	assert.Equal(t, 2, CapacityUnits(item))

	item = model.OrderItem{ProductType: ProductActivity, Adults: 2, Children: 3, Infants: 2}
	assert.Equal(t, 5, CapacityUnits(item))
}

func TestCapacityUnitsPerUnitProducts(t *testing.T) {
	item := model.OrderItem{ProductType: ProductTransfer, Quantity: 3, Adults: 4}
	assert.Equal(t, 3, CapacityUnits(item), "transfers book by quantity, not by participants")
}

func TestCapacityUnitsUnconstrainedProducts(t *testing.T) {
	item := model.OrderItem{ProductType: ProductExtra, Quantity: 5, Adults: 2}
	assert.Equal(t, 0, CapacityUnits(item))
	assert.False(t, IsCapacityBearing(ProductExtra))
	assert.False(t, IsCapacityBearing("unknown"))
}

func TestCapacityUnitsNeverNegative(t *testing.T) {
	assert.Equal(t, 0, CapacityUnits(model.OrderItem{ProductType: ProductTransfer, Quantity: -1}))
	assert.Equal(t, 0, CapacityUnits(model.OrderItem{ProductType: ProductTour, Adults: -2, Children: 1}))
}

func TestCapacityUnitsIsDeterministic(t *testing.T) {
	// The guard phase and the confirm phase call the same function;
	// repeated evaluation of the same item must always agree.
	item := model.OrderItem{ProductType: ProductTour, Adults: 1, Children: 2, Infants: 1}
	first := CapacityUnits(item)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CapacityUnits(item))
	}
}
