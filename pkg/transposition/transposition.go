package transposition

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of entries kept when no capacity is configured
const DefaultCapacity = 100000

// Bound tells how a stored score relates to the true value of the position
type Bound uint8

const (
	// Exact scores were searched inside the alpha/beta window
	Exact Bound = iota
	// Lower scores failed high, the true value is at least Score
	Lower
	// Upper scores failed low, the true value is at most Score
	Upper
)

func (b Bound) String() string {
	switch b {
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	}
	return "exact"
}

// Entry is a searched position
type Entry struct {
	Depth    int     // The remaining depth the position was searched to
	Score    float64 // The result of the search, positive favours white
	Bound    Bound   // How Score relates to the true value
	BestMove string  // The best move found in UCI notation, empty if none
}

// Usable reports whether the entry may resolve a node that still needs depth plies
func (e Entry) Usable(depth int) bool {
	return e.Depth >= depth
}

// Table is a bounded transposition cache that evicts the least recently used
// entry once it is full. A Table belongs to one game at a time.
type Table struct {
	entries  *lru.Cache[string, Entry]
	capacity int
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// New returns a table holding at most capacity entries.
// Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, Entry](capacity)
	if err != nil {
		// lru only rejects non-positive sizes
		panic(err)
	}
	return &Table{entries: entries, capacity: capacity}
}

// Query will perform a lookup in the transposition table and mark the entry as
// most recently used. The second result is false if no entry was found.
func (t *Table) Query(key string) (Entry, bool) {
	e, ok := t.entries.Get(key)
	if !ok {
		t.misses.Add(1)
		return Entry{}, false
	}
	t.hits.Add(1)
	return e, true
}

// Peek returns an entry without touching its recency or the hit counters
func (t *Table) Peek(key string) (Entry, bool) {
	return t.entries.Peek(key)
}

// Commit will add an entry to the transposition table, evicting the least
// recently used entry when the table is full
func (t *Table) Commit(key string, entry Entry) {
	t.entries.Add(key, entry)
}

// Clear drops every entry and resets the counters
func (t *Table) Clear() {
	t.entries.Purge()
	t.hits.Store(0)
	t.misses.Store(0)
}

// Len returns the number of stored entries
func (t *Table) Len() int {
	return t.entries.Len()
}

// Capacity returns the maximum number of entries
func (t *Table) Capacity() int {
	return t.capacity
}

// Hits returns the number of successful queries since the last Clear
func (t *Table) Hits() uint64 {
	return t.hits.Load()
}

// Misses returns the number of failed queries since the last Clear
func (t *Table) Misses() uint64 {
	return t.misses.Load()
}

// HitRate returns hits divided by queries, 0 before the first query
func (t *Table) HitRate() float64 {
	hits, misses := t.Hits(), t.Misses()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
