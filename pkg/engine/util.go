package engine

import "golang.org/x/exp/constraints"

type number interface {
	constraints.Integer | constraints.Float
}

func abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func clamp[T number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sideSign is +1 when White is to move and -1 for Black, turning white-positive
// scores into scores for the mover
func sideSign(white bool) float64 {
	if white {
		return 1
	}
	return -1
}
