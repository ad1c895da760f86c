package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tm "github.com/buger/goterm"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"muninn/pkg/book"
	"muninn/pkg/config"
	"muninn/pkg/engine"
	"muninn/pkg/rules"
)

var (
	configPath = flag.String("config", "", "path to a JSON config file")
	humanColor = flag.String("color", "white", "the side you play, white or black")
	difficulty = flag.String("difficulty", "", "easy, medium or hard (default from config)")
	startFEN   = flag.String("fen", rules.StartFEN, "starting position")
	instant    = flag.Bool("instant", false, "do not wait for the thinking time")
)

// match is one terminal game between the user and the engine
type match struct {
	game       *chess.Game
	eng        *engine.Engine
	difficulty engine.Difficulty
	human      chess.Color
	recent     []string
	last       *engine.SearchResult
	status     string
}

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *difficulty == "" {
		*difficulty = cfg.DefaultDifficulty
	}
	diff, err := engine.ParseDifficulty(*difficulty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	human := chess.White
	if strings.EqualFold(*humanColor, "black") {
		human = chess.Black
	}
	// the board owns the terminal, only warnings go to stderr
	log := cfg.Logger().Level(max(cfg.Level(), zerolog.WarnLevel))

	opts := []engine.Option{engine.WithLogger(log)}
	if cfg.UseBook && cfg.BookFile != "" {
		bk, err := book.LoadFile(cfg.BookFile)
		if err != nil {
			log.Fatal().Err(err).Msg("load book")
		}
		opts = append(opts, engine.WithBook(bk))
	}

	m := &match{
		eng:        engine.NewEngine(cfg, opts...),
		difficulty: diff,
		human:      human,
	}
	if err := m.reset(*startFEN); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	input := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		m.render()
		if m.over() {
			return
		}
		if m.game.Position().Turn() == m.human {
			if !m.humanTurn(input) {
				return
			}
			continue
		}
		if err := m.engineTurn(ctx); err != nil {
			log.Error().Err(err).Msg("engine failed")
			return
		}
	}
}

func (m *match) reset(fen string) error {
	opt, err := chess.FEN(fen)
	if err != nil {
		return err
	}
	m.game = chess.NewGame(opt)
	m.recent = nil
	m.last = nil
	m.status = ""
	m.eng.NewGame()
	return nil
}

// board returns a rules board of the current position with the game history
// for repetition draws
func (m *match) board() *rules.Board {
	return rules.NewBoard(m.game.Position(), m.game.Positions()...)
}

// humanTurn reads moves until a legal one is played. It returns false on quit or EOF.
func (m *match) humanTurn(input *bufio.Scanner) bool {
	for {
		fmt.Print(tm.Color("Your move (SAN or UCI, 'new', 'quit'): ", tm.CYAN))
		if !input.Scan() {
			return false
		}
		text := strings.TrimSpace(input.Text())
		switch text {
		case "":
			continue
		case "quit", "exit":
			return false
		case "new":
			if err := m.reset(rules.StartFEN); err != nil {
				m.status = err.Error()
			}
			return true
		}
		b := m.board()
		mv, err := b.FindMove(text)
		if err != nil {
			fmt.Println(tm.Color(err.Error(), tm.RED))
			continue
		}
		san := b.SAN(mv)
		if err := m.game.Move(mv); err != nil {
			fmt.Println(tm.Color(err.Error(), tm.RED))
			continue
		}
		m.recent = append(m.recent, san)
		m.status = ""
		return true
	}
}

func (m *match) engineTurn(ctx context.Context) error {
	tm.Println(tm.Color("Thinking…", tm.YELLOW))
	tm.Flush()

	start := time.Now()
	res, err := m.eng.ThinkBoard(ctx, m.board(), m.difficulty, m.recent)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if !*instant {
		if wait := time.Duration(res.ThinkingTimeMs)*time.Millisecond - time.Since(start); wait > 0 {
			time.Sleep(wait)
		}
	}
	if err := m.game.Move(res.ChosenMove()); err != nil {
		return err
	}
	m.last = res
	return nil
}

// over prints the result when the game has ended
func (m *match) over() bool {
	b := m.board()
	var result string
	switch {
	case b.IsCheckmate():
		winner := "White"
		if b.Turn() == chess.White {
			winner = "Black"
		}
		result = winner + " wins by checkmate"
	case b.IsStalemate():
		result = "Draw by stalemate"
	case b.IsRepetition():
		result = "Draw by threefold repetition"
	case b.HalfMoveClock() >= 100:
		result = "Draw by the fifty move rule"
	case rules.InsufficientMaterial(b.Position().Board()):
		result = "Draw by insufficient material"
	default:
		return false
	}
	fmt.Println(tm.Bold(result))
	return true
}

func (m *match) render() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Println(tm.Bold("muninn") + " · " + m.difficulty.String())
	tm.Println(m.game.Position().Board().Draw())

	if name := engine.OpeningName(m.game.Moves()); name != "" {
		tm.Println(tm.Color(name, tm.MAGENTA))
	}
	if res := m.last; res != nil {
		tm.Printf("Engine played %s  (%s)\n", tm.Bold(res.SAN), res.AnalysisLabel)
		if res.FromBook {
			tm.Printf("book move, eval %+.2f\n", res.Evaluation)
		} else {
			tm.Printf("eval %+.2f  depth %d  nodes %d  cache %.0f%%\n",
				res.Evaluation, res.DepthUsed, res.NodesSearched, res.CacheHitRate*100)
			if res.Truncated {
				tm.Println(tm.Color("search cut short by the time or node limit", tm.YELLOW))
			}
			if len(res.PrincipalVariation) > 1 {
				tm.Println("line: " + strings.Join(res.PrincipalVariation, " "))
			}
		}
	}
	if m.status != "" {
		tm.Println(tm.Color(m.status, tm.RED))
	}
	tm.Flush()
}
