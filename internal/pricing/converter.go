// Package pricing converts international gold quotes into local retail prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/watson9049/billygold-website/internal/domain"
)

var (
	// GramsPerTroyOunce is the mass of one troy ounce.
	GramsPerTroyOunce = decimal.RequireFromString("31.1035")
	// GramsPerTael is the mass of one Taiwanese tael (台錢).
	GramsPerTael = decimal.RequireFromString("3.75")

	taelsPerOunce = GramsPerTroyOunce.Div(GramsPerTael)
)

// ToLocalRetailPrice prices weight taels of gold at goldUSD per troy ounce,
// converted at rate TWD per USD, plus a flat workmanship fee.
// Monetary totals are rounded to whole TWD only at the end.
func ToLocalRetailPrice(goldUSD, rate, weight, fee float64) domain.PriceCalculationResult {
	g := decimal.NewFromFloat(goldUSD)
	r := decimal.NewFromFloat(rate)
	w := decimal.NewFromFloat(weight)
	f := decimal.NewFromFloat(fee)

	perTaelUSD := g.Div(taelsPerOunce)
	perTaelTWD := perTaelUSD.Mul(r)
	goldValue := perTaelUSD.Mul(w).Mul(r)
	total := goldValue.Add(f)

	return domain.PriceCalculationResult{
		RequestedWeight:       weight,
		InternationalPriceUSD: goldUSD,
		ExchangeRate:          rate,
		PricePerTaelUSD:       perTaelUSD.Round(2).InexactFloat64(),
		PricePerTaelTWD:       perTaelTWD.Round(2).InexactFloat64(),
		FlatFee:               fee,
		TotalPriceTWD:         total.Round(0).InexactFloat64(),
		Breakdown: domain.PriceBreakdown{
			GoldValueTWD: goldValue.Round(0).InexactFloat64(),
			FeeTWD:       f.Round(0).InexactFloat64(),
		},
	}
}

// PricePerTaelTWD is the shelf price of one tael with no fee.
func PricePerTaelTWD(goldUSD, rate float64) float64 {
	return decimal.NewFromFloat(goldUSD).
		Div(taelsPerOunce).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).
		InexactFloat64()
}

// Change returns the absolute and percentage difference of current from
// reference, both rounded to 2 decimals. A non-positive reference yields zeros.
func Change(current, reference float64) (abs, pct float64) {
	if reference <= 0 {
		return 0, 0
	}
	c := decimal.NewFromFloat(current)
	ref := decimal.NewFromFloat(reference)
	diff := c.Sub(ref)
	return diff.Round(2).InexactFloat64(),
		diff.Div(ref).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
