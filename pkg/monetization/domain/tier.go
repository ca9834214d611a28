package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is one band of a tiered price. PerCall and FlatFee are expressed in the
// smallest currency unit and may be fractional. A nil Max means unbounded.
type Tier struct {
	Min     int64
	Max     *int64
	PerCall decimal.Decimal
	FlatFee decimal.Decimal
}

// Contains reports whether quantity falls in (Min, Max]. The upper bound is
// closed so a quantity equal to Max belongs to this tier and not the next one.
func (t Tier) Contains(quantity int64) bool {
	if quantity <= t.Min {
		return false
	}
	return t.Max == nil || quantity <= *t.Max
}

type TierSchedule []Tier

// Validate checks that the schedule starts at zero and that each tier begins
// exactly where the previous one ends.
func (s TierSchedule) Validate() error {
	for i, tier := range s {
		if i == 0 && tier.Min != 0 {
			return fmt.Errorf("%w: first tier must start at 0, got %d", ErrInvalidTierSchedule, tier.Min)
		}
		if i > 0 {
			prev := s[i-1]
			if prev.Max == nil {
				return fmt.Errorf("%w: only the last tier may be unbounded", ErrInvalidTierSchedule)
			}
			if tier.Min != *prev.Max {
				return fmt.Errorf("%w: tier %d starts at %d, previous ends at %d", ErrInvalidTierSchedule, i, tier.Min, *prev.Max)
			}
		}
		if tier.Max != nil && *tier.Max <= tier.Min {
			return fmt.Errorf("%w: tier %d max %d must exceed min %d", ErrInvalidTierSchedule, i, *tier.Max, tier.Min)
		}
		if tier.PerCall.IsNegative() || tier.FlatFee.IsNegative() {
			return fmt.Errorf("%w: tier %d has a negative amount", ErrInvalidTierSchedule, i)
		}
	}
	return nil
}

// Resolve returns the index of the tier a quantity belongs to. Zero resolves to
// the first tier.
func (s TierSchedule) Resolve(quantity int64) (int, bool) {
	if len(s) == 0 || quantity < 0 {
		return 0, false
	}
	if quantity == 0 {
		return 0, true
	}
	for i, tier := range s {
		if tier.Contains(quantity) {
			return i, true
		}
	}
	return 0, false
}

// Cost evaluates the schedule for quantity. Graduated pricing charges each
// tier for the units inside it; volume pricing charges every unit at the tier
// the total quantity resolves to. Units beyond a bounded last tier are charged
// at that tier's rate. The result is rounded half up.
func (s TierSchedule) Cost(model RevenueModel, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, ErrInvalidQuantity
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if quantity == 0 || len(s) == 0 {
		return 0, nil
	}

	total := decimal.Zero
	switch model {
	case RevenueModelVolume:
		idx, ok := s.Resolve(quantity)
		if !ok {
			idx = len(s) - 1
		}
		tier := s[idx]
		total = tier.PerCall.Mul(decimal.NewFromInt(quantity)).Add(tier.FlatFee)
	case RevenueModelGraduated:
		last := len(s) - 1
		for i, tier := range s {
			if quantity <= tier.Min {
				break
			}
			upper := quantity
			if i < last && tier.Max != nil && *tier.Max < upper {
				upper = *tier.Max
			}
			units := upper - tier.Min
			total = total.Add(tier.PerCall.Mul(decimal.NewFromInt(units))).Add(tier.FlatFee)
		}
	default:
		return 0, fmt.Errorf("%w: revenue model %s is not tiered", ErrInvalidPriceSpec, model)
	}

	return total.Round(0).IntPart(), nil
}
