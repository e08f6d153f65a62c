package scoring

import "math"

const maxLoserDelta = 99

// WinnerDelta is the rating gained by the winner of a ranked game. Gains
// shrink as the winner's rating grows but never reach zero.
func WinnerDelta(rating int) int {
	r := float64(max(rating, 0))
	delta := int(math.Ceil(1000 / (0.00039*r*r + 10)))
	return max(delta, 1)
}

// LoserDelta is the rating lost by a player who did not win a ranked game.
// It approaches 100 for high ratings and is 0 for a rating of 0.
func LoserDelta(rating int) int {
	r := float64(max(rating, 0))
	delta := int(math.Floor(100 * (1 - math.Exp(-0.001*r))))
	// 1-e^-x rounds to exactly 1 for very large x
	return min(delta, maxLoserDelta)
}

// ApplyLoss returns rating after subtracting LoserDelta, never below zero.
func ApplyLoss(rating int) int {
	return max(rating-LoserDelta(rating), 0)
}

// ApplyWin returns rating after adding WinnerDelta.
func ApplyWin(rating int) int {
	return max(rating, 0) + WinnerDelta(rating)
}
