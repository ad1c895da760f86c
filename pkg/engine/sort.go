package engine

import (
	"sort"

	"github.com/notnil/chess"

	"muninn/pkg/eval"
	"muninn/pkg/rules"
)

// byOrderScore sorts moves by descending heuristic score
type byOrderScore struct {
	Moves  []*chess.Move
	Scores []int
}

func (a byOrderScore) Len() int { return len(a.Moves) }
func (a byOrderScore) Swap(i, j int) {
	a.Moves[i], a.Moves[j] = a.Moves[j], a.Moves[i]
	a.Scores[i], a.Scores[j] = a.Scores[j], a.Scores[i]
}
func (a byOrderScore) Less(i, j int) bool { return a.Scores[i] > a.Scores[j] }

// OrderMoves returns the moves sorted so the likely best ones are searched
// first: the cached best move, captures by most valuable victim and least
// valuable attacker, checks, promotions, castling. Equal scores keep the
// generator order. Neither b nor moves are modified.
func OrderMoves(b *rules.Board, moves []*chess.Move, cacheBest string) []*chess.Move {
	board := b.Position().Board()
	sorted := byOrderScore{
		Moves:  append([]*chess.Move(nil), moves...),
		Scores: make([]int, len(moves)),
	}
	for i, m := range sorted.Moves {
		sorted.Scores[i] = orderScore(board, m, cacheBest)
	}
	sort.Stable(sorted)
	return sorted.Moves
}

func orderScore(board *chess.Board, m *chess.Move, cacheBest string) int {
	score := 0
	if cacheBest != "" && m.String() == cacheBest {
		score += orderCacheMove
	}
	if m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant) {
		score += orderCapture + captureValue(board, m)
	}
	if m.HasTag(chess.Check) {
		score += orderCheck
	}
	if m.Promo() != chess.NoPieceType {
		score += orderPromotion + eval.PieceValue(m.Promo())
	}
	if m.HasTag(chess.KingSideCastle) || m.HasTag(chess.QueenSideCastle) {
		score += orderCastle
	}
	return score
}

// captureValue ranks captures by victim first, then by the cheapest attacker
func captureValue(board *chess.Board, m *chess.Move) int {
	victim := chess.Pawn
	if p := board.Piece(m.S2()); p != chess.NoPiece {
		victim = p.Type()
	}
	attacker := board.Piece(m.S1()).Type()
	return eval.PieceValue(victim)*10 - eval.PieceValue(attacker)/10
}

// isForcing reports checks and captures
func isForcing(m *chess.Move) bool {
	return m.HasTag(chess.Check) || m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant)
}
