package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"muninn/pkg/book"
	"muninn/pkg/config"
	"muninn/pkg/eval"
	"muninn/pkg/rules"
	"muninn/pkg/transposition"
)

// ErrUnknownDifficulty is returned for difficulty names other than easy, medium and hard
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Difficulty sets the base search depth
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var difficultyNames = [...]string{"easy", "medium", "hard"}

// ParseDifficulty parses easy, medium or hard
func ParseDifficulty(s string) (Difficulty, error) {
	for i, name := range difficultyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Difficulty(i), nil
		}
	}
	return Medium, fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

func (d Difficulty) String() string {
	if d < Easy || d > Hard {
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

// BaseDepth returns the search depth before adaptive bonuses
func (d Difficulty) BaseDepth() int {
	switch d {
	case Easy:
		return 2
	case Hard:
		return 4
	}
	return 3
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Request asks for a move in the position given by FEN
type Request struct {
	FEN                 string     `json:"fen"`
	Difficulty          Difficulty `json:"difficulty"`
	RecentOpponentMoves []string   `json:"recentOpponentMoves"`
}

// SearchResult is everything the engine reports about the move it chose.
// Evaluation is in pawns and favours white when positive.
type SearchResult struct {
	Move               string   `json:"move"`
	SAN                string   `json:"san"`
	Evaluation         float64  `json:"evaluation"`
	DepthUsed          int      `json:"depthUsed"`
	ThinkingTimeMs     int      `json:"thinkingTimeMs"`
	AnalysisLabel      string   `json:"analysisLabel"`
	FromBook           bool     `json:"fromBook"`
	NodesSearched      int      `json:"nodesSearched"`
	CacheHitRate       float64  `json:"cacheHitRate"`
	OpeningName        string   `json:"openingName,omitempty"`
	PrincipalVariation []string `json:"pv,omitempty"`
	// Truncated is set when the search was cut off by the timeout or the node
	// ceiling; DepthUsed is then the deepest fully searched depth
	Truncated bool `json:"truncated,omitempty"`

	chosen *chess.Move
}

// ChosenMove returns the move as a notnil/chess move, nil when the result was decoded from JSON
func (r *SearchResult) ChosenMove() *chess.Move {
	return r.chosen
}

// Engine plays one game at a time. It owns its transposition cache, which is
// only cleared by NewGame. An Engine is not safe for concurrent use; give every
// game its own Engine.
type Engine struct {
	cfg   config.Config
	cache *transposition.Table
	book  *book.Book
	rng   *rand.Rand
	log   zerolog.Logger

	// Nodes of the most recent search
	NodesSearched int
	// Counted since the engine was created or ResetStats was called
	BookMoves int
	Searches  int
}

// Option customises an Engine
type Option func(*Engine)

// WithBook replaces the opening book, nil disables it
func WithBook(bk *book.Book) Option {
	return func(e *Engine) { e.book = bk }
}

// WithRand injects the random source used by the book and the move selector
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCache makes the engine use an existing cache
func WithCache(t *transposition.Table) Option {
	return func(e *Engine) { e.cache = t }
}

// NewEngine returns an engine configured by cfg
func NewEngine(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg,
		rng: rand.New(frand.NewSource()),
		log: zerolog.Nop(),
	}
	if cfg.UseBook {
		e.book = book.Default()
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = transposition.New(cfg.CacheCapacity)
	}
	return e
}

// Cache returns the engine's transposition cache
func (e *Engine) Cache() *transposition.Table {
	return e.cache
}

// NewGame clears the cache so nothing leaks from the previous game
func (e *Engine) NewGame() {
	e.cache.Clear()
	e.log.Debug().Msg("cache cleared for new game")
}

// ResetStats will reset the statistics of the engine
func (e *Engine) ResetStats() {
	e.NodesSearched = 0
	e.BookMoves = 0
	e.Searches = 0
}

// Think parses the request position and chooses a move. It returns a nil
// result and nil error when the side to move has no legal moves.
func (e *Engine) Think(ctx context.Context, req Request) (*SearchResult, error) {
	b, err := rules.ParseFEN(req.FEN)
	if err != nil {
		return nil, err
	}
	return e.ThinkBoard(ctx, b, req.Difficulty, req.RecentOpponentMoves)
}

// ThinkBoard chooses a move for the current position of b. The board is used
// for make/undo during the search and is back at its starting position on return.
func (e *Engine) ThinkBoard(ctx context.Context, b *rules.Board, d Difficulty, recent []string) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	legal := b.LegalMoves()
	if len(legal) == 0 {
		e.log.Info().Str("fen", b.FEN()).Msg("no legal moves, nothing to search")
		return nil, nil
	}
	log := e.log.With().Str("difficulty", d.String()).Int("ply", b.Ply()).Logger()
	pieces := rules.PieceCount(b.Position().Board())
	unpredictability := AnalyzeStyle(recent)
	staticEval := eval.Evaluate(b)

	// Book moves are instant and skip the search entirely
	if res, ok := e.playBook(b, log, pieces, staticEval, unpredictability); ok {
		return res, nil
	}

	if m, tried := mateInOne(b); m != nil {
		score := eval.MateScore - 1
		if b.Turn() == chess.Black {
			score = -score
		}
		res := &SearchResult{
			Move:           m.String(),
			SAN:            b.SAN(m),
			Evaluation:     score,
			DepthUsed:      1,
			ThinkingTimeMs: EstimateThinkingTime(pieces, 1, abs(score), unpredictability),
			AnalysisLabel:  AnalysisLabel(labelInput{mate: true}),
			NodesSearched:  tried,
			CacheHitRate:   e.cache.HitRate(),
			chosen:         m,
		}
		e.NodesSearched = tried
		log.Info().Str("move", res.SAN).Msg("mate in one")
		return res, nil
	}

	depth := SelectDepth(d, pieces, staticEval, unpredictability, e.cfg.MaxDepth)

	searchCtx := ctx
	if timeout := e.cfg.SearchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var stop atomic.Bool
	release := context.AfterFunc(searchCtx, func() { stop.Store(true) })
	defer release()

	start := time.Now()
	s := newSearcher(b, e.cache, e.cfg.MaxNodes, &stop)
	roots, completed := s.deepen(depth)
	e.Searches++
	e.NodesSearched = s.nodes
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.aborted {
		log.Warn().Int("nodes", s.nodes).Int("target", depth).Int("completed", completed).
			Int("candidates", len(roots)).Int("moves", len(legal)).
			Msg("search ceiling reached")
	}
	if len(roots) == 0 {
		first := OrderMoves(b, legal, "")[0]
		roots = []RootMove{{Move: first, Score: staticEval}}
	}

	chosen := SelectMove(roots, b, unpredictability, staticEval, e.rng)
	res := &SearchResult{
		Move:       chosen.Move.String(),
		SAN:        b.SAN(chosen.Move),
		Evaluation: chosen.Score,
		DepthUsed:  completed,
		Truncated:  s.aborted,
		ThinkingTimeMs: EstimateThinkingTime(
			pieces, completed, abs(chosen.Score), unpredictability),
		AnalysisLabel: AnalysisLabel(labelInput{
			pieceCount: pieces,
			move:       chosen.Move,
			evaluation: chosen.Score,
		}),
		NodesSearched:      s.nodes,
		CacheHitRate:       e.cache.HitRate(),
		PrincipalVariation: principalVariation(b, e.cache, chosen.Move, pvLength),
		chosen:             chosen.Move,
	}
	log.Debug().
		Str("move", res.SAN).
		Float64("eval", res.Evaluation).
		Float64("static", staticEval).
		Float64("unpredictability", unpredictability).
		Int("depth", completed).
		Int("nodes", s.nodes).
		Int("candidates", len(roots)).
		Float64("cache_hit_rate", res.CacheHitRate).
		Dur("took", time.Since(start)).
		Msg("search complete")
	return res, nil
}
