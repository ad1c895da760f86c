package engine

import (
	"math"
	"sync/atomic"

	"github.com/notnil/chess"

	"muninn/pkg/eval"
	"muninn/pkg/rules"
	"muninn/pkg/transposition"
)

// RootMove is the evaluation of one legal move at the root, positive favours white
type RootMove struct {
	Move  *chess.Move
	Score float64
}

// searcher runs one alpha/beta search over a single board. It is not safe for
// concurrent use; the board is mutated in place through Apply/Undo.
type searcher struct {
	board    *rules.Board
	cache    *transposition.Table
	nodes    int
	maxNodes int
	stop     *atomic.Bool
	aborted  bool
}

func newSearcher(b *rules.Board, cache *transposition.Table, maxNodes int, stop *atomic.Bool) *searcher {
	if stop == nil {
		stop = &atomic.Bool{}
	}
	return &searcher{board: b, cache: cache, maxNodes: maxNodes, stop: stop}
}

// halt counts the node and reports whether the search has to unwind
func (s *searcher) halt() bool {
	s.nodes++
	if s.aborted {
		return true
	}
	if s.stop.Load() || (s.maxNodes > 0 && s.nodes > s.maxNodes) {
		s.aborted = true
	}
	return s.aborted
}

// rootMoves searches every legal move of the root to depth-1 with a full
// window, so every score is exact and comparable. Moves that were not finished
// before an abort are left out.
func (s *searcher) rootMoves(depth int) []RootMove {
	s.nodes++
	key := s.board.FEN()
	var cacheBest string
	if e, ok := s.cache.Query(key); ok {
		cacheBest = e.BestMove
	}
	maximizing := s.board.Turn() == chess.White
	moves := OrderMoves(s.board, s.board.LegalMoves(), cacheBest)
	roots := make([]RootMove, 0, len(moves))
	for _, m := range moves {
		s.board.Apply(m)
		v := s.search(depth-1, math.Inf(-1), math.Inf(1), !maximizing)
		s.board.Undo()
		if s.aborted {
			break
		}
		roots = append(roots, RootMove{Move: m, Score: v})
	}
	if !s.aborted && len(roots) > 0 {
		best := roots[0]
		for _, r := range roots[1:] {
			if sideSign(maximizing)*r.Score > sideSign(maximizing)*best.Score {
				best = r
			}
		}
		s.cache.Commit(key, transposition.Entry{Depth: depth, Score: best.Score, Bound: transposition.Exact, BestMove: best.Move.String()})
	}
	return roots
}

// deepen searches the root at depth 1, 2 and so on up to depth. When the
// search is cut off, the candidates of the last finished depth are kept so all
// of them carry scores of the same depth. Only when not even depth 1 finished
// are the moves searched so far returned. The second value is the depth of
// the returned scores.
func (s *searcher) deepen(depth int) ([]RootMove, int) {
	var roots []RootMove
	completed := 0
	for d := 1; d <= depth; d++ {
		next := s.rootMoves(d)
		if s.aborted {
			if completed == 0 && len(next) > 0 {
				return next, d
			}
			break
		}
		roots, completed = next, d
	}
	return roots, completed
}

// search is minimax with alpha/beta pruning. White maximizes. Values outside
// the window are bounds in the direction of the failure and are stored as such.
func (s *searcher) search(depth int, alpha, beta float64, maximizing bool) float64 {
	if s.halt() {
		return 0
	}
	// leaves are never stored, so they skip the cache entirely
	if depth <= 0 || s.board.IsGameOver() {
		return eval.Evaluate(s.board)
	}
	key := s.board.FEN()
	var cacheBest string
	if e, ok := s.cache.Query(key); ok {
		cacheBest = e.BestMove
		if e.Usable(depth) {
			score := fromCache(e.Score, s.board.Ply())
			switch {
			case e.Bound == transposition.Exact:
				return score
			case e.Bound == transposition.Lower && score >= beta:
				return score
			case e.Bound == transposition.Upper && score <= alpha:
				return score
			}
		}
	}

	alphaOrig, betaOrig := alpha, beta
	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}
	var bestMove *chess.Move
	for _, m := range OrderMoves(s.board, s.board.LegalMoves(), cacheBest) {
		s.board.Apply(m)
		v := s.search(depth-1, alpha, beta, !maximizing)
		s.board.Undo()
		if s.aborted {
			return 0
		}
		if maximizing {
			if v > best {
				best, bestMove = v, m
			}
			alpha = math.Max(alpha, v)
		} else {
			if v < best {
				best, bestMove = v, m
			}
			beta = math.Min(beta, v)
		}
		if beta <= alpha {
			break
		}
	}

	entry := transposition.Entry{Depth: depth, Score: toCache(best, s.board.Ply()), Bound: transposition.Exact}
	switch {
	case best <= alphaOrig:
		entry.Bound = transposition.Upper
	case best >= betaOrig:
		entry.Bound = transposition.Lower
	}
	if bestMove != nil {
		entry.BestMove = bestMove.String()
	}
	s.cache.Commit(key, entry)
	return best
}

// toCache makes mate scores relative to the node so entries stay valid after
// the root moves on. fromCache undoes it for a node at the given ply.
func toCache(score float64, ply int) float64 {
	switch {
	case score >= eval.MateThreshold:
		return score + float64(ply)
	case score <= -eval.MateThreshold:
		return score - float64(ply)
	}
	return score
}

func fromCache(score float64, ply int) float64 {
	switch {
	case score >= eval.MateThreshold:
		return score - float64(ply)
	case score <= -eval.MateThreshold:
		return score + float64(ply)
	}
	return score
}

// mateInOne returns the first root move that checkmates, nil if there is none
func mateInOne(b *rules.Board) (*chess.Move, int) {
	tried := 0
	for _, m := range b.LegalMoves() {
		tried++
		if !m.HasTag(chess.Check) {
			continue
		}
		b.Apply(m)
		mate := b.IsCheckmate()
		b.Undo()
		if mate {
			return m, tried
		}
	}
	return nil, tried
}
