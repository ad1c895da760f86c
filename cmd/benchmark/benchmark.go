package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/pkg/profile"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"muninn/pkg/config"
	"muninn/pkg/engine"
	"muninn/pkg/eval"
	"muninn/pkg/rules"
)

var (
	profileMode = flag.String("profile", "", "write a cpu or mem profile to the working directory")
	games       = flag.Int("games", 4, "self play games per difficulty")
	plies       = flag.Int("plies", 40, "maximum plies per game")
	seed        = flag.Int64("seed", 1, "seed of the first game")
	evals       = flag.Int("evals", 200000, "static evaluations to time")
)

// positions searched once per difficulty before the games
var suite = []string{
	rules.StartFEN,
	"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
	"r3k2r/ppp2ppp/8/8/8/8/PPP2PPP/R3K2R w KQkq - 0 1",
	"8/5k2/8/3p4/3P4/2K5/8/7R w - - 0 1",
	"5B2/PP1k2P1/p3pr1p/7p/1p2p3/8/3K2Rn/4r3 w - - 0 1",
}

// tally collects search figures of one difficulty
type tally struct {
	mu       sync.Mutex
	searches int
	book     int
	nodes    []int
	elapsed  time.Duration
}

func (t *tally) add(res *engine.SearchResult, took time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if res.FromBook {
		t.book++
		return
	}
	t.searches++
	t.nodes = append(t.nodes, res.NodesSearched)
	t.elapsed += took
}

func main() {
	flag.Parse()
	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	fmt.Println("----BEGIN MUNINN BENCHMARK----")
	benchmarkStaticEval(*evals)
	for _, d := range []engine.Difficulty{engine.Easy, engine.Medium, engine.Hard} {
		t := &tally{}
		if err := searchSuite(d, t); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := selfPlay(d, t); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		report(d, t)
	}
	fmt.Println("----END  MUNINN  BENCHMARK----")
}

func benchmarkStaticEval(n int) {
	if n <= 0 {
		return
	}
	b, err := rules.ParseFEN(suite[1])
	if err != nil {
		panic(err)
	}
	start := time.Now()
	for i := 0; i < n; i++ {
		eval.Evaluate(b)
	}
	took := time.Since(start)
	fmt.Printf("[EVAL] %d evaluations in %v, %.0f per second\n", n, took.Round(time.Millisecond), float64(n)/took.Seconds())
}

// searchSuite searches every suite position with a fresh engine
func searchSuite(d engine.Difficulty, t *tally) error {
	cfg := config.Default()
	cfg.UseBook = false
	for i, fen := range suite {
		eng := engine.NewEngine(cfg, engine.WithRand(rand.New(rand.NewSource(*seed+int64(i)))))
		start := time.Now()
		res, err := eng.Think(context.Background(), engine.Request{FEN: fen, Difficulty: d})
		if err != nil {
			return fmt.Errorf("suite %s: %w", fen, err)
		}
		if res != nil {
			t.add(res, time.Since(start))
		}
	}
	return nil
}

// selfPlay runs independent games in parallel, each with its own engines
func selfPlay(d engine.Difficulty, t *tally) error {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < *games; i++ {
		gameSeed := *seed + int64(i)
		g.Go(func() error {
			return playGame(ctx, d, gameSeed, t)
		})
	}
	return g.Wait()
}

func playGame(ctx context.Context, d engine.Difficulty, gameSeed int64, t *tally) error {
	rng := rand.New(rand.NewSource(gameSeed))
	cfg := config.Default()
	players := map[chess.Color]*engine.Engine{
		chess.White: engine.NewEngine(cfg, engine.WithRand(rng)),
		chess.Black: engine.NewEngine(cfg, engine.WithRand(rand.New(rand.NewSource(gameSeed+1000)))),
	}
	game := chess.NewGame()
	var sans []string
	for ply := 0; ply < *plies; ply++ {
		b := rules.NewBoard(game.Position(), game.Positions()...)
		if b.IsGameOver() {
			return nil
		}
		start := time.Now()
		res, err := players[b.Turn()].ThinkBoard(ctx, b, d, opponentMoves(sans))
		if err != nil {
			return err
		}
		if res == nil {
			return nil
		}
		t.add(res, time.Since(start))
		if err := game.Move(res.ChosenMove()); err != nil {
			return err
		}
		sans = append(sans, res.SAN)
	}
	return nil
}

// opponentMoves returns the moves of the side that is not to move
func opponentMoves(sans []string) []string {
	return lo.Filter(sans, func(_ string, i int) bool {
		return (len(sans)-1-i)%2 == 0
	})
}

func report(d engine.Difficulty, t *tally) {
	if t.searches == 0 {
		fmt.Printf("[%s] no searches\n", d)
		return
	}
	total := lo.Sum(t.nodes)
	mean := float64(total) / float64(t.searches)
	fmt.Printf("[%s] %d searches, %d book moves, mean %.0f nodes (max %d), %.0f nodes per second\n",
		d, t.searches, t.book, mean, lo.Max(t.nodes), float64(total)/t.elapsed.Seconds())
}
