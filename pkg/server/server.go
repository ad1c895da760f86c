// Package server exposes sessions over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"muninn/pkg/config"
	"muninn/pkg/engine"
	"muninn/pkg/rules"
	"muninn/pkg/session"
)

const maxBodyBytes = 64 << 10

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	log        zerolog.Logger
	difficulty engine.Difficulty
	upgrader   websocket.Upgrader

	// PingInterval is how long a websocket may stay silent before a ping is sent
	PingInterval time.Duration
}

type idResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New returns a Server handing requests to the sessions of mgr
func New(cfg config.Config, mgr *session.Manager, log zerolog.Logger) (*Server, error) {
	d, err := engine.ParseDifficulty(cfg.DefaultDifficulty)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:          cfg,
		sessions:     mgr,
		log:          log,
		difficulty:   d,
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		PingInterval: wsIdlePingInterval,
	}, nil
}

// Routes returns the HTTP handler of the API
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/ws", s.serveWS)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/move", s.move)
			r.Post("/new-game", s.newGame)
			r.Delete("/", s.deleteSession)
		})
	})
	return r
}

// RunReaper closes idle sessions until ctx is done
func (s *Server) RunReaper(ctx context.Context) error {
	idle := s.cfg.SessionIdle()
	if idle <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sessions.Reap(idle)
		}
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: sess.ID})
}

func (s *Server) move(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req := engine.Request{Difficulty: s.difficulty}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if !errors.Is(err, engine.ErrUnknownDifficulty) {
			err = errBadPayload
		}
		s.writeError(w, r, err)
		return
	}
	res, err := sess.Think(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) newGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.NewGame(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errBadPayload = errors.New("invalid payload")

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrTooMany):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadPayload),
		errors.Is(err, rules.ErrInvalidFEN),
		errors.Is(err, engine.ErrUnknownDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// requestLogger logs every request through zerolog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("http")
		}()
		next.ServeHTTP(ww, r)
	})
}
