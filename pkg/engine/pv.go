package engine

import (
	"github.com/notnil/chess"

	"muninn/pkg/rules"
	"muninn/pkg/transposition"
)

// principalVariation follows the cached best moves from the position after
// first and returns the line in SAN, first move included. The cache is peeked
// so recency and hit counters are left alone. b is restored before returning.
func principalVariation(b *rules.Board, cache *transposition.Table, first *chess.Move, limit int) []string {
	if first == nil || limit <= 0 {
		return nil
	}
	line := []string{b.SAN(first)}
	b.Apply(first)
	applied := 1
	defer func() {
		for ; applied > 0; applied-- {
			b.Undo()
		}
	}()

	for len(line) < limit && !b.IsGameOver() {
		entry, ok := cache.Peek(b.FEN())
		if !ok || entry.BestMove == "" {
			break
		}
		m, err := b.FindMove(entry.BestMove)
		if err != nil {
			break
		}
		line = append(line, b.SAN(m))
		b.Apply(m)
		applied++
	}
	return line
}
