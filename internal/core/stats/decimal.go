package stats

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Ratio returns done/chance as a percentage rounded to one decimal place.
// A zero chance count yields decimal.Zero rather than an error: a player who
// never had the opportunity simply has no frequency yet.
func Ratio(done, chance int64) decimal.Decimal {
	if chance == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(done).Mul(hundred).DivRound(decimal.NewFromInt(chance), 1)
}

// MinorToMajor converts an amount in minor currency units (cents) to major units.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// BBPer100 converts BBwon (hundredths of a big blind, summed over hands) into
// big blinds won per 100 hands.
func BBPer100(bbWonCenti, hands int64) decimal.Decimal {
	if hands == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(bbWonCenti).DivRound(decimal.NewFromInt(hands), 2)
}
