package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentageCommission(t *testing.T) {
	p := PercentageCommission{BasisPoints: 750} // 7.5%
	assert.Equal(t, int64(750), p.Commission(10_000, 4))
	assert.Equal(t, int64(0), p.Commission(0, 4))
	assert.Equal(t, int64(0), PercentageCommission{}.Commission(10_000, 4))
}

func TestFixedCommission(t *testing.T) {
	f := FixedCommission{AmountCents: 1500}
	assert.Equal(t, int64(1500), f.Commission(10_000, 1))
	assert.Equal(t, int64(1500), f.Commission(999_999, 12))
	assert.Equal(t, int64(0), f.Commission(0, 3))
}

func TestMarkupCommission(t *testing.T) {
	m := MarkupCommission{PerUnitCents: 200}
	assert.Equal(t, int64(800), m.Commission(50_000, 4))
	assert.Equal(t, int64(0), m.Commission(50_000, 0))
}

func TestFactorCommission(t *testing.T) {
	f := FactorCommission{Factor: 0.0333}
	// 10000 * 0.0333 = 333, exact
	assert.Equal(t, int64(333), f.Commission(10_000, 2))
	// 1001 * 0.0333 = 33.33..., rounds to 33
	assert.Equal(t, int64(33), f.Commission(1001, 2))
	// 1500 * 0.001 = 1.5, rounds half away from zero to 2
	assert.Equal(t, int64(2), FactorCommission{Factor: 0.001}.Commission(1500, 2))
	assert.Equal(t, int64(0), FactorCommission{}.Commission(10_000, 2))
}

func TestNoCommission(t *testing.T) {
	assert.Equal(t, int64(0), NoCommission{}.Commission(123_456, 9))
}
