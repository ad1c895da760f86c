package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the FEN of the standard initial position
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is returned when a position string cannot be decoded
var ErrInvalidFEN = errors.New("invalid fen")

// ErrIllegalMove is returned when a move string does not name a legal move
var ErrIllegalMove = errors.New("illegal move")

// Board is a make/undo stack of positions. Apply pushes the successor of the
// top position, Undo pops it again. Positions are immutable, so popping always
// restores the exact previous state.
type Board struct {
	stack   []frame
	history map[string]int
}

type frame struct {
	pos      *chess.Position
	move     *chess.Move
	halfmove int
	check    bool

	// filled on first use, most frames of a search never need them
	fen       string
	key       string
	moves     []*chess.Move
	generated bool
}

// ParseFEN returns a Board rooted at the position described by fen
func ParseFEN(fen string) (*Board, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return NewBoard(chess.NewGame(opt).Position()), nil
}

// NewBoard returns a Board rooted at pos. The optional history lists the
// positions that led to pos and is only consulted for repetition draws.
func NewBoard(pos *chess.Position, history ...*chess.Position) *Board {
	b := &Board{history: make(map[string]int, len(history))}
	for _, h := range history {
		if h == nil || h == pos {
			continue
		}
		b.history[OpeningKey(h)]++
	}
	root := frame{pos: pos, check: kingAttacked(pos.Board(), pos.Turn())}
	if fields := strings.Fields(root.fenString()); len(fields) >= 5 {
		root.halfmove, _ = strconv.Atoi(fields[4])
	}
	b.stack = append(make([]frame, 0, 16), root)
	return b
}

func (f *frame) fenString() string {
	if f.fen == "" {
		f.fen = f.pos.String()
	}
	return f.fen
}

func (f *frame) openingKey() string {
	if f.key == "" {
		fields := strings.Fields(f.fenString())
		if len(fields) >= 4 {
			f.key = strings.Join(fields[:4], " ")
		} else {
			f.key = f.fen
		}
	}
	return f.key
}

func (f *frame) legal() []*chess.Move {
	if !f.generated {
		f.moves = f.pos.ValidMoves()
		f.generated = true
	}
	return f.moves
}

func (b *Board) top() *frame {
	return &b.stack[len(b.stack)-1]
}

// Apply plays m on top of the current position
func (b *Board) Apply(m *chess.Move) {
	parent := b.top()
	f := frame{
		pos:      parent.pos.Update(m),
		move:     m,
		halfmove: parent.halfmove + 1,
		check:    m.HasTag(chess.Check),
	}
	if m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant) || parent.pos.Board().Piece(m.S1()).Type() == chess.Pawn {
		f.halfmove = 0
	}
	b.stack = append(b.stack, f)
}

// Undo takes back the last applied move. Undoing past the root is a
// programming error and panics.
func (b *Board) Undo() {
	if len(b.stack) == 1 {
		panic("rules: undo at root position")
	}
	b.stack = b.stack[:len(b.stack)-1]
}

// Ply returns the number of moves applied since the root
func (b *Board) Ply() int {
	return len(b.stack) - 1
}

// Position returns the current position
func (b *Board) Position() *chess.Position {
	return b.top().pos
}

// Turn returns the side to move
func (b *Board) Turn() chess.Color {
	return b.top().pos.Turn()
}

// LastMove returns the move that produced the current position, nil at the root
func (b *Board) LastMove() *chess.Move {
	return b.top().move
}

// FEN returns the full FEN of the current position, move counters included
func (b *Board) FEN() string {
	return b.top().fenString()
}

// OpeningKey returns the canonical key of the current position, see OpeningKey
func (b *Board) OpeningKey() string {
	return b.top().openingKey()
}

// HalfMoveClock returns the number of plies since the last capture or pawn move
func (b *Board) HalfMoveClock() int {
	return b.top().halfmove
}

// LegalMoves returns the legal moves of the side to move. The slice is
// shared between calls at the same position and must not be modified.
func (b *Board) LegalMoves() []*chess.Move {
	return b.top().legal()
}

// InCheck reports whether the side to move is in check
func (b *Board) InCheck() bool {
	return b.top().check
}

// IsCheckmate reports whether the side to move has been mated
func (b *Board) IsCheckmate() bool {
	f := b.top()
	return f.check && len(f.legal()) == 0
}

// IsStalemate reports whether the side to move has no moves and is not in check
func (b *Board) IsStalemate() bool {
	f := b.top()
	return !f.check && len(f.legal()) == 0
}

// IsDraw reports stalemate, threefold repetition, insufficient material and the fifty move rule
func (b *Board) IsDraw() bool {
	if b.HalfMoveClock() >= 100 || b.IsRepetition() {
		return true
	}
	if InsufficientMaterial(b.top().pos.Board()) {
		return true
	}
	return b.IsStalemate()
}

// IsGameOver reports whether the current position ends the game
func (b *Board) IsGameOver() bool {
	return b.IsCheckmate() || b.IsDraw()
}

// IsRepetition reports whether the current position occurred at least three
// times. Only positions since the last capture or pawn move can match.
func (b *Board) IsRepetition() bool {
	top := b.top()
	if top.halfmove < 4 {
		return false
	}
	key := top.openingKey()
	count := b.history[key] + 1
	for i := len(b.stack) - 3; i >= 0 && i >= len(b.stack)-1-top.halfmove; i -= 2 {
		if b.stack[i].openingKey() == key {
			count++
		}
	}
	return count >= 3
}

// SAN renders m in standard algebraic notation relative to the current position
func (b *Board) SAN(m *chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(b.top().pos, m)
}

// FindMove returns the legal move matching the given UCI or SAN text
func (b *Board) FindMove(text string) (*chess.Move, error) {
	text = strings.TrimSpace(text)
	for _, m := range b.LegalMoves() {
		if m.String() == text || b.SAN(m) == text {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrIllegalMove, text, b.FEN())
}

// OpeningKey returns piece placement, side to move, castling rights and en
// passant square of pos. Move counters are left out so that transposed move
// orders reaching the same early position share a key.
func OpeningKey(pos *chess.Position) string {
	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return pos.String()
	}
	return strings.Join(fields[:4], " ")
}

// PieceCount returns the number of pieces on the board, kings included
func PieceCount(board *chess.Board) int {
	return len(board.SquareMap())
}
