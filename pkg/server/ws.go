package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"muninn/pkg/engine"
)

const wsIdlePingInterval = 30 * time.Second

type wsInbound struct {
	Type string `json:"type"`
	engine.Request
}

type wsOutbound struct {
	Type string `json:"type"`
	*engine.SearchResult
	Error string `json:"error,omitempty"`
}

// wsNoMove answers a move request for a position without legal moves
type wsNoMove struct {
	Type   string               `json:"type"`
	Result *engine.SearchResult `json:"result"`
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// serveWS gives the connection its own session for as long as it stays open.
// Messages are handled one at a time in the order they arrive.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = s.sessions.Delete(sess.ID) }()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log := s.log.With().Str("session", sess.ID).Logger()
	log.Info().Msg("websocket connected")

	send := make(chan []byte, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, send, s.PingInterval); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
		}
	}()
	reply := func(msg any) {
		select {
		case send <- mustMarshal(msg):
		case <-writerDone:
		}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		in := wsInbound{Request: engine.Request{Difficulty: s.difficulty}}
		if err := json.Unmarshal(message, &in); err != nil {
			reply(wsOutbound{Type: "error", Error: err.Error()})
			continue
		}
		switch in.Type {
		case "move":
			res, err := sess.Think(r.Context(), in.Request)
			if err != nil {
				reply(wsOutbound{Type: "error", Error: err.Error()})
				continue
			}
			if res == nil {
				reply(wsNoMove{Type: "result"})
				continue
			}
			reply(wsOutbound{Type: "result", SearchResult: res})
		case "new-game":
			if err := sess.NewGame(r.Context()); err != nil {
				reply(wsOutbound{Type: "error", Error: err.Error()})
				continue
			}
			reply(wsOutbound{Type: "ack"})
		case "pong":
		default:
			reply(wsOutbound{Type: "error", Error: "unknown message type " + in.Type})
		}
	}
	close(send)
	<-writerDone
	log.Info().Msg("websocket disconnected")
}

// writeWSWithHeartbeat writes queued messages and pings the client when
// nothing was written for a whole interval
func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsOutbound{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < interval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
