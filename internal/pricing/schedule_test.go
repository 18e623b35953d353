package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testSchedule() Schedule {
	// Built intentionally out of order; NewSchedule sorts by minimum quantity.
	return NewSchedule(1000, []Tier{
		{MinQty: 25, UnitPriceCents: 700},
		{MinQty: 5, UnitPriceCents: 900},
		{MinQty: 10, UnitPriceCents: 800},
	})
}

func TestScheduleUnitPriceAtSelectsDeepestTier(t *testing.T) {
	schedule := testSchedule()

	assert.Equal(t, 1000, schedule.UnitPriceAt(0))
	assert.Equal(t, 1000, schedule.UnitPriceAt(4))
	assert.Equal(t, 900, schedule.UnitPriceAt(5))
	assert.Equal(t, 900, schedule.UnitPriceAt(9))
	assert.Equal(t, 800, schedule.UnitPriceAt(10))
	assert.Equal(t, 700, schedule.UnitPriceAt(25))
	assert.Equal(t, 700, schedule.UnitPriceAt(1000))
}

func TestScheduleSavings(t *testing.T) {
	schedule := testSchedule()

	assert.Equal(t, 0, schedule.SavingsAt(0))
	assert.Equal(t, 0, schedule.SavingsAt(3))
	assert.Equal(t, 100*5, schedule.SavingsAt(5))
	assert.Equal(t, 200*12, schedule.SavingsAt(12))
	assert.Equal(t, 300*30, schedule.SavingsAt(30))
}

func TestScheduleSavingsNeverNegative(t *testing.T) {
	// A tier priced above base yields zero savings, not negative.
	schedule := NewSchedule(500, []Tier{{MinQty: 2, UnitPriceCents: 600}})

	assert.Equal(t, 0, schedule.SavingsAt(10))
}

func TestScheduleSavingsPercent(t *testing.T) {
	schedule := testSchedule()

	assert.True(t, schedule.SavingsPercentAt(3).Equal(decimal.Zero))
	assert.True(t, schedule.SavingsPercentAt(10).Equal(decimal.NewFromInt(20)))
	assert.True(t, schedule.SavingsPercentAt(25).Equal(decimal.NewFromInt(30)))

	zeroBase := NewSchedule(0, nil)
	assert.True(t, zeroBase.SavingsPercentAt(10).Equal(decimal.Zero))
}

func TestScheduleWithoutTiersHoldsBasePrice(t *testing.T) {
	schedule := NewSchedule(1250, nil)

	assert.Equal(t, 1250, schedule.UnitPriceAt(1))
	assert.Equal(t, 1250, schedule.UnitPriceAt(500))
	assert.Equal(t, 0, schedule.SavingsAt(500))
}
