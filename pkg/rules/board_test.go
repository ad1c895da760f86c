package rules

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/notnil/chess"
)

func mustParse(t *testing.T, fen string) *Board {
	t.Helper()
	b, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return b
}

func play(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, text := range moves {
		m, err := b.FindMove(text)
		if err != nil {
			t.Fatalf("FindMove(%q): %v", text, err)
		}
		b.Apply(m)
	}
}

func TestApplyUndoRestoresPosition(t *testing.T) {
	b := mustParse(t, StartFEN)
	start := b.FEN()
	for _, m := range b.LegalMoves() {
		b.Apply(m)
		if b.Ply() != 1 {
			t.Fatalf("ply after apply = %d, want 1", b.Ply())
		}
		for _, reply := range b.LegalMoves() {
			b.Apply(reply)
			b.Undo()
		}
		b.Undo()
		if b.FEN() != start {
			t.Fatalf("undo of %s left %s, want %s", m, b.FEN(), start)
		}
	}
}

func TestUndoAtRootPanics(t *testing.T) {
	b := mustParse(t, StartFEN)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on undo at root")
		}
	}()
	b.Undo()
}

func TestParseFENRejectsGarbage(t *testing.T) {
	_, err := ParseFEN("not a position")
	if !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("err = %v, want ErrInvalidFEN", err)
	}
}

func TestStatusDetection(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		check     bool
		checkmate bool
		draw      bool
	}{
		{"start", StartFEN, false, false, false},
		{"rook check", "4k3/8/8/8/8/8/8/4R1K1 b - - 0 1", true, false, false},
		{"knight check", "4k3/8/3N4/8/8/8/P7/6K1 b - - 0 1", true, false, false},
		{"pawn check", "8/8/8/8/8/8/3p4/4K2k w - - 0 1", true, false, false},
		{"fools mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", true, true, false},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false, false, true},
		{"bare kings", "8/8/4k3/8/8/4K3/8/8 w - - 0 1", false, false, true},
		{"lone bishop", "8/8/4k3/8/8/3BK3/8/8 w - - 0 1", false, false, true},
		{"fifty moves", "8/8/4k3/8/8/4K3/4R3/8 w - - 100 80", false, false, true},
		{"rook endgame", "8/8/4k3/8/8/4K3/4R3/8 w - - 10 80", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustParse(t, tt.fen)
			if got := b.InCheck(); got != tt.check {
				t.Errorf("InCheck = %v, want %v", got, tt.check)
			}
			if got := b.IsCheckmate(); got != tt.checkmate {
				t.Errorf("IsCheckmate = %v, want %v", got, tt.checkmate)
			}
			if got := b.IsDraw(); got != tt.draw {
				t.Errorf("IsDraw = %v, want %v", got, tt.draw)
			}
		})
	}
}

func TestCheckTagTracksAppliedMoves(t *testing.T) {
	b := mustParse(t, "4k3/8/8/8/8/8/8/R5K1 w - - 0 1")
	play(t, b, "Ra8+")
	if !b.InCheck() {
		t.Fatalf("expected black to be in check after Ra8+")
	}
	b.Undo()
	if b.InCheck() {
		t.Fatalf("root should not be in check")
	}
}

func TestThreefoldRepetition(t *testing.T) {
	b := mustParse(t, StartFEN)
	play(t, b, "Nf3", "Nf6", "Ng1", "Ng8")
	if b.IsDraw() {
		t.Fatalf("second occurrence must not be a draw")
	}
	play(t, b, "Nf3", "Nf6", "Ng1", "Ng8")
	if !b.IsRepetition() || !b.IsDraw() {
		t.Fatalf("third occurrence must be a draw")
	}
}

func TestHistoryCountsTowardsRepetition(t *testing.T) {
	game := chess.NewGame()
	for _, san := range []string{"Nf3", "Nf6", "Ng1", "Ng8", "Nf3", "Nf6", "Ng1"} {
		if err := game.MoveStr(san); err != nil {
			t.Fatalf("MoveStr(%s): %v", san, err)
		}
	}
	positions := game.Positions()
	b := NewBoard(game.Position(), positions[:len(positions)-1]...)
	play(t, b, "Ng8")
	if !b.IsRepetition() {
		t.Fatalf("expected repetition using game history")
	}
}

func TestOpeningKeyIgnoresCounters(t *testing.T) {
	a := mustParse(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	b := mustParse(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 7 12")
	if a.OpeningKey() != b.OpeningKey() {
		t.Fatalf("opening keys differ: %q vs %q", a.OpeningKey(), b.OpeningKey())
	}
	if a.FEN() == b.FEN() {
		t.Fatalf("full FENs must keep the counters")
	}
}

func TestFindMoveAcceptsSANAndUCI(t *testing.T) {
	b := mustParse(t, StartFEN)
	san, err := b.FindMove("Nf3")
	if err != nil {
		t.Fatalf("FindMove(Nf3): %v", err)
	}
	uci, err := b.FindMove("g1f3")
	if err != nil {
		t.Fatalf("FindMove(g1f3): %v", err)
	}
	if san.String() != uci.String() {
		t.Fatalf("SAN and UCI resolved to %s and %s", san, uci)
	}
	if _, err := b.FindMove("Ke2"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
}

// TestFramesAgreeWithPosition plays random games and compares the values a
// Board tracks on its own with the ones the position reports.
func TestFramesAgreeWithPosition(t *testing.T) {
	starts := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/R3K2R w KQ - 37 60",
	}
	rng := rand.New(rand.NewSource(11))
	for _, fen := range starts {
		for game := 0; game < 4; game++ {
			b := mustParse(t, fen)
			var fens []string
			for ply := 0; ply < 120; ply++ {
				pos := b.Position()
				want := pos.String()
				if b.FEN() != want {
					t.Fatalf("FEN %q, position says %q", b.FEN(), want)
				}
				fens = append(fens, want)
				clock, _ := strconv.Atoi(strings.Fields(want)[4])
				if b.HalfMoveClock() != clock {
					t.Fatalf("%s: half move clock %d, want %d", want, b.HalfMoveClock(), clock)
				}
				if b.IsCheckmate() != (pos.Status() == chess.Checkmate) || b.IsStalemate() != (pos.Status() == chess.Stalemate) {
					t.Fatalf("%s: status mismatch with %v", want, pos.Status())
				}
				if b.InCheck() != kingAttacked(pos.Board(), pos.Turn()) {
					t.Fatalf("%s: check flag mismatch", want)
				}
				if len(b.LegalMoves()) != len(pos.ValidMoves()) {
					t.Fatalf("%s: %d cached moves, want %d", want, len(b.LegalMoves()), len(pos.ValidMoves()))
				}
				moves := b.LegalMoves()
				if len(moves) == 0 {
					break
				}
				b.Apply(moves[rng.Intn(len(moves))])
			}
			for i := len(fens) - 1; i >= 0; i-- {
				for b.Ply() > i {
					b.Undo()
				}
				if b.FEN() != fens[i] {
					t.Fatalf("undo to ply %d gave %q, want %q", i, b.FEN(), fens[i])
				}
			}
		}
	}
}

func TestRepetitionResetsAfterPawnMove(t *testing.T) {
	b := mustParse(t, StartFEN)
	play(t, b, "Nf3", "Nf6", "Ng1", "Ng8", "e4", "e5")
	play(t, b, "Nf3", "Nf6", "Ng1", "Ng8")
	if b.IsRepetition() {
		t.Fatalf("second occurrence after the pawn moves is not a threefold repetition")
	}
	play(t, b, "Nf3", "Nf6", "Ng1", "Ng8")
	if !b.IsRepetition() {
		t.Fatalf("third occurrence should be a repetition")
	}
}
