package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

func money(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func moneyPtr(v string) *decimal.Decimal {
	d := money(v)
	return &d
}

// DemoProducts returns the starter catalog used by the in-memory store and the seeder.
func DemoProducts() []Product {
	return []Product{
		{
			ID:        "0b6c5f7e-3f0e-4a55-9f39-6f0f1c0a1001",
			Title:     "Ashwagandha Churna 100g",
			Slug:      "ashwagandha-churna-100g",
			UnitPrice: money("100"),
			MRP:       moneyPtr("125"),
			Tiers: pricing.TierTable{
				{MinQuantity: 1, UnitPrice: money("100")},
				{MinQuantity: 10, UnitPrice: money("90")},
				{MinQuantity: 25, UnitPrice: money("80")},
			},
			Active: true,
		},
		{
			ID:        "0b6c5f7e-3f0e-4a55-9f39-6f0f1c0a1002",
			Title:     "Chyawanprash 1kg",
			Slug:      "chyawanprash-1kg",
			UnitPrice: money("340"),
			MRP:       moneyPtr("399"),
			Tiers: pricing.TierTable{
				{MinQuantity: 1, UnitPrice: money("340")},
				{MinQuantity: 12, UnitPrice: money("320")},
				{MinQuantity: 48, UnitPrice: money("299")},
			},
			Active: true,
		},
		{
			ID:        "0b6c5f7e-3f0e-4a55-9f39-6f0f1c0a1003",
			Title:     "Triphala Tablets 60s",
			Slug:      "triphala-tablets-60s",
			UnitPrice: money("150"),
			Tiers: pricing.TierTable{
				{MinQuantity: 1, UnitPrice: money("150")},
				{MinQuantity: 20, UnitPrice: money("135")},
			},
			Active: true,
		},
		{
			ID:        "0b6c5f7e-3f0e-4a55-9f39-6f0f1c0a1004",
			Title:     "Kumkumadi Tailam 30ml",
			Slug:      "kumkumadi-tailam-30ml",
			UnitPrice: money("520"),
			MRP:       moneyPtr("650"),
			Active:    true,
		},
	}
}
