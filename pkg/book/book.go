// Package book holds the opening repertoire the engine plays from without searching.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/notnil/chess"
	"github.com/notnil/chess/opening"
	"github.com/samber/lo"

	"muninn/pkg/rules"
)

// ErrEmpty is returned when a book would contain no positions
var ErrEmpty = errors.New("book: no lines")

// Entry is a candidate move for a book position
type Entry struct {
	Move   string // UCI notation
	Weight int
	Name   string
}

// Selection is the move chosen from the book
type Selection struct {
	Move *chess.Move
	Name string
}

// Book maps canonical opening keys to weighted candidate moves. A Book is
// immutable after construction and safe to share between games.
type Book struct {
	entries map[string][]Entry
}

var (
	ecoOnce sync.Once
	eco     *opening.BookECO

	defaultOnce sync.Once
	defaultBook *Book
)

func ecoBook() *opening.BookECO {
	ecoOnce.Do(func() {
		eco = opening.NewBookECO()
	})
	return eco
}

// Default returns the book built from DefaultLines
func Default() *Book {
	defaultOnce.Do(func() {
		bk, err := New(DefaultLines)
		if err != nil {
			panic(fmt.Sprintf("book: default lines: %v", err))
		}
		defaultBook = bk
	})
	return defaultBook
}

// New replays every line from the initial position and records, for each
// position on the way, the next move with the line's weight. Moves shared by
// several lines accumulate their weights.
func New(lines []Line) (*Book, error) {
	if len(lines) == 0 {
		return nil, ErrEmpty
	}
	bk := &Book{entries: make(map[string][]Entry)}
	for _, ln := range lines {
		if ln.Weight <= 0 {
			return nil, fmt.Errorf("book: line %q has non-positive weight %d", ln.Name, ln.Weight)
		}
		game := chess.NewGame()
		for _, san := range strings.Fields(ln.Moves) {
			key := rules.OpeningKey(game.Position())
			if err := game.MoveStr(san); err != nil {
				return nil, fmt.Errorf("book: line %q move %s: %w", ln.Name, san, err)
			}
			moves := game.Moves()
			played := moves[len(moves)-1]
			name := ln.Name
			if o := ecoBook().Find(moves); o != nil {
				name = o.Title()
			}
			bk.add(key, Entry{Move: played.String(), Weight: ln.Weight, Name: name})
		}
	}
	return bk, nil
}

// Load reads a JSON array of lines
func Load(r io.Reader) (*Book, error) {
	var lines []Line
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, fmt.Errorf("book: decode: %w", err)
	}
	return New(lines)
}

// LoadFile reads a JSON array of lines from path
func LoadFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (bk *Book) add(key string, e Entry) {
	list := bk.entries[key]
	for i := range list {
		if list[i].Move == e.Move {
			list[i].Weight += e.Weight
			return
		}
	}
	bk.entries[key] = append(list, e)
}

// IsKnown reports whether the current position of b is in the book
func (bk *Book) IsKnown(b *rules.Board) bool {
	if bk == nil {
		return false
	}
	return len(bk.entries[b.OpeningKey()]) > 0
}

// Entries returns a copy of the candidates stored under key, in insertion order
func (bk *Book) Entries(key string) []Entry {
	if bk == nil {
		return nil
	}
	return append([]Entry(nil), bk.entries[key]...)
}

// Size returns the number of positions in the book
func (bk *Book) Size() int {
	if bk == nil {
		return 0
	}
	return len(bk.entries)
}

// Select draws a book move for the current position of b. A uniform draw
// scaled to the total weight is reduced by each entry's weight in turn and the
// entry that takes it below zero wins. The second result is false on a book miss.
func (bk *Book) Select(b *rules.Board, rng *rand.Rand) (Selection, bool) {
	if bk == nil {
		return Selection{}, false
	}
	entries := bk.entries[b.OpeningKey()]
	if len(entries) == 0 {
		return Selection{}, false
	}
	total := lo.SumBy(entries, func(e Entry) int { return e.Weight })
	r := rng.Float64() * float64(total)
	chosen := entries[len(entries)-1]
	for _, e := range entries {
		r -= float64(e.Weight)
		if r < 0 {
			chosen = e
			break
		}
	}
	m, err := b.FindMove(chosen.Move)
	if err != nil {
		return Selection{}, false
	}
	return Selection{Move: m, Name: chosen.Name}, true
}

// OpeningName returns the title of the longest named opening the moves follow,
// or "" when not even the first move is a known opening
func OpeningName(moves []*chess.Move) string {
	for n := len(moves); n > 0; n-- {
		if o := ecoBook().Find(moves[:n]); o != nil {
			return o.Title()
		}
	}
	return ""
}
