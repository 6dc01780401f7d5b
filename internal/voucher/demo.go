package voucher

import "github.com/shopspring/decimal"

// DemoRules returns the starter vouchers used by the in-memory store and the seeder.
func DemoRules() []Rule {
	limit := int32(500)
	return []Rule{
		{
			Code:       "AYUR10",
			Kind:       KindPercent,
			PercentBps: 1000,
			MinSpend:   decimal.NewFromInt(1000),
			UsageLimit: &limit,
		},
		{
			Code:     "FLAT250",
			Kind:     KindFixed,
			Value:    decimal.NewFromInt(250),
			MinSpend: decimal.NewFromInt(5000),
		},
	}
}
