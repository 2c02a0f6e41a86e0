package rating

import "math"

const DefaultK = 32

// Expected is the Elo win expectancy of a against b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Update returns the new winner and loser ratings after a decisive match.
// Ratings never drop below zero.
func Update(winner, loser, k int) (int, int) {
	w := winner + int(math.Round(float64(k)*(1-Expected(winner, loser))))
	l := loser + int(math.Round(float64(k)*(0-Expected(loser, winner))))
	return floor(w), floor(l)
}

// Func binds k so the update can be handed to the store as an arena.RateFunc.
func Func(k int) func(winner, loser int) (int, int) {
	if k <= 0 {
		k = DefaultK
	}
	return func(winner, loser int) (int, int) {
		return Update(winner, loser, k)
	}
}

func floor(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
