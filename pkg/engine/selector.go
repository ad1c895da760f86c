package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/notnil/chess"
	"github.com/samber/lo"

	"muninn/pkg/rules"
)

// Tolerance is the width of the window below the best root score in which
// moves are still considered good enough to play
func Tolerance(unpredictability, staticEval float64) float64 {
	tol := baseTolerance
	if unpredictability > unpredictableTrigger {
		tol += unpredictableBonus
	}
	if abs(staticEval) < quietEval {
		tol += quietBonus
	}
	return tol
}

// Candidates returns the root moves worth playing, best first. Scores are
// compared from the point of view of the side to move. In sharp positions
// only checks and captures survive when there are any.
func Candidates(roots []RootMove, b *rules.Board, unpredictability, staticEval float64) []RootMove {
	if len(roots) == 0 {
		return nil
	}
	sign := sideSign(b.Turn() == chess.White)
	ranked := append([]RootMove(nil), roots...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return sign*ranked[i].Score > sign*ranked[j].Score
	})
	best := sign * ranked[0].Score
	tol := Tolerance(unpredictability, staticEval)
	cands := lo.Filter(ranked, func(r RootMove, _ int) bool {
		return best-sign*r.Score <= tol
	})
	if abs(staticEval) > sharpEval {
		forcing := lo.Filter(cands, func(r RootMove, _ int) bool { return isForcing(r.Move) })
		if len(forcing) > 0 {
			cands = forcing
		}
	}
	return cands
}

// SelectMove picks one of the candidates at random, each rank being twice as
// likely as the next one down. The best move is favoured but never certain.
func SelectMove(roots []RootMove, b *rules.Board, unpredictability, staticEval float64, rng *rand.Rand) RootMove {
	cands := Candidates(roots, b, unpredictability, staticEval)
	if len(cands) == 0 {
		return RootMove{}
	}
	n := len(cands)
	weights := lo.Map(cands, func(_ RootMove, rank int) float64 {
		return math.Ldexp(1, n-1-rank)
	})
	r := rng.Float64() * lo.Sum(weights)
	for i, w := range weights {
		r -= w
		if r < 0 {
			return cands[i]
		}
	}
	return cands[n-1]
}
