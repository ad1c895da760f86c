// Package session runs one engine per game on its own goroutine.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"muninn/pkg/config"
	"muninn/pkg/engine"
)

var (
	// ErrClosed is returned for work submitted to a closed session
	ErrClosed = errors.New("session closed")
	// ErrNotFound is returned by the Manager for unknown ids
	ErrNotFound = errors.New("session not found")
	// ErrTooMany is returned when the Manager is at MaxSessions
	ErrTooMany = errors.New("too many sessions")
)

// Reply is the outcome of one submitted request. Result is nil without an
// error when the side to move had no legal moves.
type Reply struct {
	Result *engine.SearchResult
	Err    error
}

type job struct {
	ctx     context.Context
	req     engine.Request
	newGame bool
	reply   chan Reply
}

// Session owns an engine and its cache. Requests are handled one at a time in
// submission order by a single worker goroutine.
type Session struct {
	ID string

	engine *engine.Engine
	log    zerolog.Logger
	jobs   chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastUsed time.Time
}

// New starts a session with a fresh engine
func New(cfg config.Config, log zerolog.Logger, opts ...engine.Option) *Session {
	id := uuid.NewString()
	log = log.With().Str("session", id).Logger()
	opts = append(opts[:len(opts):len(opts)], engine.WithLogger(log))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		engine:   engine.NewEngine(cfg, opts...),
		log:      log,
		jobs:     make(chan job),
		ctx:      ctx,
		cancel:   cancel,
		lastUsed: time.Now(),
	}
	s.wg.Add(1)
	go s.run()
	log.Debug().Msg("session started")
	return s
}

func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.jobs:
			j.reply <- s.handle(j)
			close(j.reply)
		}
	}
}

func (s *Session) handle(j job) Reply {
	// Close cancels whatever is running
	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	release := context.AfterFunc(s.ctx, cancel)
	defer release()

	s.touch()
	if j.newGame {
		s.engine.NewGame()
		return Reply{}
	}
	res, err := s.engine.Think(ctx, j.req)
	if err != nil && s.ctx.Err() != nil && j.ctx.Err() == nil {
		err = ErrClosed
	}
	return Reply{Result: res, Err: err}
}

// Submit queues a request and returns a channel that receives exactly one Reply
func (s *Session) Submit(ctx context.Context, req engine.Request) <-chan Reply {
	return s.enqueue(job{ctx: ctx, req: req, reply: make(chan Reply, 1)})
}

func (s *Session) enqueue(j job) <-chan Reply {
	select {
	case s.jobs <- j:
	case <-s.ctx.Done():
		j.reply <- Reply{Err: ErrClosed}
		close(j.reply)
	case <-j.ctx.Done():
		j.reply <- Reply{Err: j.ctx.Err()}
		close(j.reply)
	}
	return j.reply
}

// Think submits req and waits for the reply
func (s *Session) Think(ctx context.Context, req engine.Request) (*engine.SearchResult, error) {
	select {
	case r := <-s.Submit(ctx, req):
		return r.Result, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NewGame clears the session's cache once every earlier request is done
func (s *Session) NewGame(ctx context.Context) error {
	select {
	case r := <-s.enqueue(job{ctx: ctx, newGame: true, reply: make(chan Reply, 1)}):
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker, cancelling a running search. It is safe to call more than once.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

// LastUsed returns when the session last started work
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// Stats returns the cache figures of the session's engine. Only meaningful
// while no request is running.
func (s *Session) Stats() (entries int, hitRate float64) {
	c := s.engine.Cache()
	return c.Len(), c.HitRate()
}
