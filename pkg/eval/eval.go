// Package eval scores chess positions in pawns. Positive scores favour White
// no matter which side is to move.
package eval

import (
	"github.com/notnil/chess"

	"muninn/pkg/rules"
)

// Evaluate returns the score of the current position of b.
// A mated side to move scores MateScore minus the distance to the search root,
// so quicker mates are preferred. Every draw scores exactly 0.
func Evaluate(b *rules.Board) float64 {
	if b.IsCheckmate() {
		if b.Turn() == chess.White {
			return -(MateScore - float64(b.Ply()))
		}
		return MateScore - float64(b.Ply())
	}
	if b.IsDraw() {
		return 0
	}
	squares := b.Position().Board().SquareMap()
	endgame := len(squares) <= EndgamePieceCount
	cp := 0
	for sq, p := range squares {
		v := pieceValues[p.Type()] + squareBonus(p, sq, endgame)
		if p.Color() == chess.White {
			cp += v
		} else {
			cp -= v
		}
	}
	score := float64(cp) / 100

	side := 1.0
	if b.Turn() == chess.Black {
		side = -1.0
	}
	score += side * float64(len(b.LegalMoves())) * MobilityWeight
	if b.InCheck() {
		score -= side * CheckPenalty
	}
	return score
}

// Material returns the centipawn material balance of board from White's view
func Material(board *chess.Board) int {
	total := 0
	for _, p := range board.SquareMap() {
		if p.Color() == chess.White {
			total += pieceValues[p.Type()]
		} else {
			total -= pieceValues[p.Type()]
		}
	}
	return total
}

// PieceValue returns the centipawn value of a piece type
func PieceValue(pt chess.PieceType) int {
	return pieceValues[pt]
}

// IsMate reports whether score encodes a forced mate
func IsMate(score float64) bool {
	return score >= MateThreshold || score <= -MateThreshold
}

func squareBonus(p chess.Piece, sq chess.Square, endgame bool) int {
	idx := tableIndex(p.Color(), sq)
	switch p.Type() {
	case chess.Pawn:
		return pawnTable[idx]
	case chess.Knight:
		return knightTable[idx]
	case chess.Bishop:
		return bishopTable[idx]
	case chess.Rook:
		return rookTable[idx]
	case chess.Queen:
		return queenTable[idx]
	case chess.King:
		if endgame {
			return kingEndgameTable[idx]
		}
		return kingMiddlegameTable[idx]
	}
	return 0
}

// tableIndex maps sq onto the diagram-ordered tables, mirroring ranks for Black
func tableIndex(clr chess.Color, sq chess.Square) int {
	file, rank := int(sq.File()), int(sq.Rank())
	if clr == chess.White {
		return (7-rank)*8 + file
	}
	return rank*8 + file
}
