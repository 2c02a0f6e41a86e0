package settlement

import "github.com/shopspring/decimal"

// DefaultRakeRate is the platform's share of the pot.
var DefaultRakeRate = decimal.RequireFromString("0.10")

// Payout splits the pot of a match with the given stake. The rake is floored
// to whole coins and the winner receives the remainder.
func Payout(stake int64, rate decimal.Decimal) (pot, rake, reward int64) {
	pot = 2 * stake
	rake = decimal.NewFromInt(pot).Mul(rate).Floor().IntPart()
	return pot, rake, pot - rake
}
