package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tier is one step of a product's bulk pricing: at or above MinQty the unit
// price drops to UnitPriceCents.
type Tier struct {
	MinQty         int
	UnitPriceCents int
}

// Schedule is a product's bulk-discount schedule. The zero tier is the base
// unit price, applied when no tier's minimum is met.
type Schedule struct {
	BaseUnitPriceCents int
	tiers              []Tier
}

// NewSchedule builds a schedule from unordered tiers. Tiers with a unit price
// at or above base are kept as-is; the resolver simply never benefits from them.
func NewSchedule(baseUnitPriceCents int, tiers []Tier) Schedule {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinQty < sorted[j].MinQty
	})
	return Schedule{BaseUnitPriceCents: baseUnitPriceCents, tiers: sorted}
}

// UnitPriceAt returns the unit price applicable at the given quantity: the
// deepest tier whose minimum is met, or the base price.
func (s Schedule) UnitPriceAt(qty int) int {
	price := s.BaseUnitPriceCents
	for _, tier := range s.tiers {
		if qty < tier.MinQty {
			break
		}
		price = tier.UnitPriceCents
	}
	return price
}

// SavingsAt returns the total savings versus base pricing for the given
// quantity. Never negative.
func (s Schedule) SavingsAt(qty int) int {
	if qty <= 0 {
		return 0
	}
	unit := s.UnitPriceAt(qty)
	perUnit := decimal.NewFromInt(int64(s.BaseUnitPriceCents)).
		Sub(decimal.NewFromInt(int64(unit)))
	if perUnit.IsNegative() {
		return 0
	}
	total := perUnit.Mul(decimal.NewFromInt(int64(qty)))
	return int(total.IntPart())
}

// SavingsPercentAt returns the discount depth at the given quantity as a
// percentage with two decimal places, e.g. 12.50.
func (s Schedule) SavingsPercentAt(qty int) decimal.Decimal {
	if s.BaseUnitPriceCents <= 0 {
		return decimal.Zero
	}
	unit := s.UnitPriceAt(qty)
	base := decimal.NewFromInt(int64(s.BaseUnitPriceCents))
	return base.Sub(decimal.NewFromInt(int64(unit))).
		Div(base).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
