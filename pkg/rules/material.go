package rules

import "github.com/notnil/chess"

var knightJumps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
var kingSteps = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
var straightRays = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
var diagonalRays = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

// InsufficientMaterial reports positions where neither side can mate:
// bare kings, a single minor piece, or bishops that all live on one square colour.
func InsufficientMaterial(board *chess.Board) bool {
	minors := 0
	bishopColours := map[int]bool{}
	knights := 0
	for sq, p := range board.SquareMap() {
		switch p.Type() {
		case chess.King:
		case chess.Bishop:
			minors++
			bishopColours[(int(sq.File())+int(sq.Rank()))%2] = true
		case chess.Knight:
			minors++
			knights++
		default:
			return false
		}
	}
	if minors <= 1 {
		return true
	}
	return knights == 0 && len(bishopColours) == 1
}

func pieceAt(board *chess.Board, file, rank int) chess.Piece {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return chess.NoPiece
	}
	return board.Piece(chess.Square(rank*8 + file))
}

// kingAttacked reports whether the king of clr is attacked. Only the root
// of a Board needs it, every other frame reads the check tag of its move.
func kingAttacked(board *chess.Board, clr chess.Color) bool {
	kf, kr := -1, -1
	for sq, p := range board.SquareMap() {
		if p.Type() == chess.King && p.Color() == clr {
			kf, kr = int(sq.File()), int(sq.Rank())
			break
		}
	}
	if kf < 0 {
		return false
	}
	enemy := clr.Other()
	is := func(p chess.Piece, types ...chess.PieceType) bool {
		if p == chess.NoPiece || p.Color() != enemy {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}
	// pawns attack towards the side they move to
	dir := 1
	if clr == chess.Black {
		dir = -1
	}
	if is(pieceAt(board, kf-1, kr+dir), chess.Pawn) || is(pieceAt(board, kf+1, kr+dir), chess.Pawn) {
		return true
	}
	for _, j := range knightJumps {
		if is(pieceAt(board, kf+j[0], kr+j[1]), chess.Knight) {
			return true
		}
	}
	for _, s := range kingSteps {
		if is(pieceAt(board, kf+s[0], kr+s[1]), chess.King) {
			return true
		}
	}
	slide := func(rays [4][2]int, types ...chess.PieceType) bool {
		for _, r := range rays {
			for f, rk := kf+r[0], kr+r[1]; f >= 0 && f < 8 && rk >= 0 && rk < 8; f, rk = f+r[0], rk+r[1] {
				p := pieceAt(board, f, rk)
				if p == chess.NoPiece {
					continue
				}
				if is(p, types...) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(straightRays, chess.Rook, chess.Queen) || slide(diagonalRays, chess.Bishop, chess.Queen)
}
