package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"muninn/pkg/config"
	"muninn/pkg/engine"
	"muninn/pkg/rules"
)

const quietFEN = "r3k2r/ppp2ppp/8/8/8/8/PPP2PPP/R3K2R w KQkq - 0 1"

func testConfig() config.Config {
	cfg := config.Default()
	cfg.UseBook = false
	return cfg
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New(testConfig(), zerolog.Nop(), engine.WithRand(rand.New(rand.NewSource(1))))
	t.Cleanup(s.Close)
	return s
}

func TestSubmitReturnsFuture(t *testing.T) {
	s := newTestSession(t)
	reply := <-s.Submit(context.Background(), engine.Request{FEN: quietFEN, Difficulty: engine.Easy})
	if reply.Err != nil {
		t.Fatal(reply.Err)
	}
	b, _ := rules.ParseFEN(quietFEN)
	if _, err := b.FindMove(reply.Result.Move); err != nil {
		t.Fatalf("illegal move %s", reply.Result.Move)
	}
}

func TestRequestsRunInOrder(t *testing.T) {
	s := newTestSession(t)
	fens := []string{
		quietFEN,
		"6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
	}
	var futures []<-chan Reply
	for _, fen := range fens {
		futures = append(futures, s.Submit(context.Background(), engine.Request{FEN: fen, Difficulty: engine.Easy}))
	}
	first := <-futures[0]
	if first.Err != nil || first.Result == nil {
		t.Fatalf("first reply %+v", first)
	}
	mate := <-futures[1]
	if mate.Err != nil || mate.Result.Move != "a1a8" {
		t.Fatalf("second reply %+v", mate)
	}
	none := <-futures[2]
	if none.Err != nil || none.Result != nil {
		t.Fatalf("mated position should give nil, nil; got %+v", none)
	}
}

func TestInvalidFENComesBackAsError(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Think(context.Background(), engine.Request{FEN: "8/8/8"})
	if !errors.Is(err, rules.ErrInvalidFEN) {
		t.Fatalf("got %v, want ErrInvalidFEN", err)
	}
}

func TestNewGameClearsCache(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Think(context.Background(), engine.Request{FEN: quietFEN, Difficulty: engine.Easy}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Stats(); n == 0 {
		t.Fatalf("cache empty after a search")
	}
	if err := s.NewGame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Stats(); n != 0 {
		t.Fatalf("cache holds %d entries after NewGame", n)
	}
}

func TestClosedSessionRejectsWork(t *testing.T) {
	s := New(testConfig(), zerolog.Nop())
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Fatalf("Closed = false after Close")
	}
	reply := <-s.Submit(context.Background(), engine.Request{FEN: quietFEN})
	if !errors.Is(reply.Err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", reply.Err)
	}
	if err := s.NewGame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("NewGame after Close = %v", err)
	}
}

func TestCancelledSubmit(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Think(ctx, engine.Request{FEN: quietFEN, Difficulty: engine.Hard})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestManager(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 2
	m := NewManager(cfg, zerolog.Nop())
	defer m.CloseAll()

	a, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatalf("duplicate id %s", a.ID)
	}
	if _, err := m.Create(); !errors.Is(err, ErrTooMany) {
		t.Fatalf("third session: %v, want ErrTooMany", err)
	}

	got, err := m.Get(a.ID)
	if err != nil || got != a {
		t.Fatalf("Get(%s) = %v, %v", a.ID, got, err)
	}
	if err := m.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	if !a.Closed() {
		t.Fatalf("deleted session still open")
	}
	if _, err := m.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete: %v", err)
	}
	if err := m.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}

func TestManagerReap(t *testing.T) {
	m := NewManager(testConfig(), zerolog.Nop())
	defer m.CloseAll()
	s, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	if n := m.Reap(time.Hour); n != 0 {
		t.Fatalf("reaped %d fresh sessions", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := m.Reap(time.Millisecond); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	if !s.Closed() || m.Len() != 0 {
		t.Fatalf("idle session survived")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(testConfig(), zerolog.Nop())
	defer m.CloseAll()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		s, err := m.Create()
		if err != nil {
			t.Fatal(err)
		}
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			_, err := s.Think(context.Background(), engine.Request{FEN: quietFEN, Difficulty: engine.Easy})
			errs <- err
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}
