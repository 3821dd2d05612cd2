package loyalty

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storeline/internal/config"
)

// Policy converts a paid line total into earned points.
type Policy interface {
	PointsEarned(lineTotal decimal.Decimal) int64
}

// DivisorPolicy earns floor(lineTotal / divisor) points per line. The divisor
// is read on every call so policy reloads apply to the next invoice.
type DivisorPolicy struct {
	holder *config.PolicyHolder
}

func NewPolicy(holder *config.PolicyHolder) Policy {
	return &DivisorPolicy{holder: holder}
}

func (p *DivisorPolicy) PointsEarned(lineTotal decimal.Decimal) int64 {
	if !lineTotal.IsPositive() {
		return 0
	}
	divisor := p.holder.Get().PointsDivisor
	if divisor <= 0 {
		return 0
	}
	return lineTotal.Div(decimal.NewFromInt(divisor)).Floor().IntPart()
}
