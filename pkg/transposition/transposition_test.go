package transposition

import (
	"fmt"
	"sync"
	"testing"
)

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	tt := New(3)
	tt.Commit("a", Entry{Depth: 1})
	tt.Commit("b", Entry{Depth: 1})
	tt.Commit("c", Entry{Depth: 1})
	tt.Commit("d", Entry{Depth: 1})

	if _, ok := tt.Peek("a"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if _, ok := tt.Peek(k); !ok {
			t.Fatalf("entry %s missing", k)
		}
	}
	if tt.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tt.Len())
	}
}

func TestQueryPromotesEntry(t *testing.T) {
	tt := New(3)
	tt.Commit("a", Entry{Depth: 1})
	tt.Commit("b", Entry{Depth: 1})
	tt.Commit("c", Entry{Depth: 1})

	if _, ok := tt.Query("a"); !ok {
		t.Fatalf("expected hit on a")
	}
	tt.Commit("d", Entry{Depth: 1})

	if _, ok := tt.Peek("a"); !ok {
		t.Fatalf("queried entry was evicted")
	}
	if _, ok := tt.Peek("b"); ok {
		t.Fatalf("b should have been evicted instead of a")
	}
}

func TestQueryThenRecommitSurvivesOverflow(t *testing.T) {
	tt := New(2)
	tt.Commit("a", Entry{Depth: 1, Score: 1})
	tt.Commit("b", Entry{Depth: 1})

	e, _ := tt.Query("a")
	e.Depth = 2
	tt.Commit("a", e)
	tt.Commit("c", Entry{Depth: 1})

	got, ok := tt.Peek("a")
	if !ok {
		t.Fatalf("re-committed entry was evicted")
	}
	if got.Depth != 2 || got.Score != 1 {
		t.Fatalf("entry = %+v, want depth 2 score 1", got)
	}
}

func TestPeekDoesNotPromote(t *testing.T) {
	tt := New(2)
	tt.Commit("a", Entry{})
	tt.Commit("b", Entry{})
	tt.Peek("a")
	tt.Commit("c", Entry{})
	if _, ok := tt.Peek("a"); ok {
		t.Fatalf("peek must not refresh recency")
	}
	if tt.Hits()+tt.Misses() != 0 {
		t.Fatalf("peek must not count as a query")
	}
}

func TestHitRateAndClear(t *testing.T) {
	tt := New(10)
	if tt.HitRate() != 0 {
		t.Fatalf("empty table hit rate = %v", tt.HitRate())
	}
	tt.Commit("a", Entry{})
	tt.Query("a")
	tt.Query("a")
	tt.Query("a")
	tt.Query("missing")
	if got := tt.HitRate(); got != 0.75 {
		t.Fatalf("HitRate = %v, want 0.75", got)
	}
	tt.Clear()
	if tt.Len() != 0 || tt.Hits() != 0 || tt.Misses() != 0 {
		t.Fatalf("clear left len=%d hits=%d misses=%d", tt.Len(), tt.Hits(), tt.Misses())
	}
}

func TestNonPositiveCapacityFallsBack(t *testing.T) {
	if got := New(0).Capacity(); got != DefaultCapacity {
		t.Fatalf("Capacity = %d, want %d", got, DefaultCapacity)
	}
}

func TestUsableRequiresDepth(t *testing.T) {
	e := Entry{Depth: 3}
	if !e.Usable(3) || !e.Usable(1) || e.Usable(4) {
		t.Fatalf("Usable must accept depths up to the stored depth only")
	}
}

func TestConcurrentReadersOfCounters(t *testing.T) {
	tt := New(1 << 10)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				key := fmt.Sprintf("%d-%d", g, i%64)
				tt.Commit(key, Entry{Depth: i % 6})
				tt.Query(key)
				_ = tt.HitRate()
			}
		}(g)
	}
	wg.Wait()
	if tt.Hits() == 0 {
		t.Fatalf("expected hits after concurrent traffic")
	}
}
