package engine

import (
	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"muninn/pkg/book"
	"muninn/pkg/rules"
)

// playBook returns an instant result when the position is in the book. The
// evaluation reported is the static one, no search happens.
func (e *Engine) playBook(b *rules.Board, log zerolog.Logger, pieces int, staticEval, unpredictability float64) (*SearchResult, bool) {
	sel, ok := e.book.Select(b, e.rng)
	if !ok {
		return nil, false
	}
	e.BookMoves++
	res := &SearchResult{
		Move:           sel.Move.String(),
		SAN:            b.SAN(sel.Move),
		Evaluation:     staticEval,
		ThinkingTimeMs: EstimateThinkingTime(pieces, 0, abs(staticEval), unpredictability),
		AnalysisLabel:  AnalysisLabel(labelInput{fromBook: true}),
		FromBook:       true,
		CacheHitRate:   e.cache.HitRate(),
		OpeningName:    sel.Name,
		chosen:         sel.Move,
	}
	log.Info().Str("move", res.SAN).Str("opening", sel.Name).Msg("playing from book")
	return res, true
}

// OpeningName returns the current theory name for a game
func OpeningName(moves []*chess.Move) string {
	return book.OpeningName(moves)
}
