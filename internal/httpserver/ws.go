// internal/httpserver/ws.go
//
// WebSocket stream for one live session: GET /game/{id}/ws.
//
// Outbound: a "snapshot" event first, then every session event in mutation
// order, as game.Event JSON.
// Inbound: {"type":"select","payload":{"position":3}}, {"type":"start"},
// {"type":"end"}, {"type":"reset"}. Unknown types are ignored.
//
// Each connection runs a read loop and a write loop. Events are queued on a
// buffered channel; a client that falls a full buffer behind is disconnected
// rather than stalling the session.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// wsMessage is an inbound client action.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsClient is one connected viewer of a session.
type wsClient struct {
	conn    *websocket.Conn
	session *game.Session
	send    chan game.Event

	mu     sync.Mutex // guards closed
	closed bool
	slow   chan struct{}
	once   sync.Once
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", e.Session.ID()).Msg("websocket upgrade")
		return
	}
	c := &wsClient{
		conn:    conn,
		session: e.Session,
		send:    make(chan game.Event, sendBuffer),
		slow:    make(chan struct{}),
	}
	cancel := e.Session.Watch(game.NotifierFunc(c.enqueue))
	log.Debug().Str("gameId", e.Session.ID()).Str("remote", conn.RemoteAddr().String()).Msg("stream attached")

	go c.writeLoop()
	go func() {
		c.readLoop()
		cancel()
		c.closeSend()
		log.Debug().Str("gameId", e.Session.ID()).Msg("stream detached")
	}()
}

// enqueue is the session notifier. It runs under the session lock and never blocks.
func (c *wsClient) enqueue(ev game.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		c.once.Do(func() { close(c.slow) })
	}
}

func (c *wsClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readLoop applies client actions until the connection fails.
func (c *wsClient) readLoop() {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("remote", c.conn.RemoteAddr().String()).Msg("websocket read")
			}
			return
		}
		c.apply(msg)
	}
}

func (c *wsClient) apply(msg wsMessage) {
	switch msg.Type {
	case "select":
		var p struct {
			Position int `json:"position"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			c.session.SelectCard(p.Position)
		}
	case "start":
		if err := c.session.StartOrRestart(); err != nil {
			log.Warn().Err(err).Str("gameId", c.session.ID()).Msg("restart")
		}
	case "end":
		c.session.EndNow()
	case "reset":
		if err := c.session.Reset(); err != nil {
			log.Warn().Err(err).Str("gameId", c.session.ID()).Msg("reset")
		}
	}
}

// writeLoop pumps queued events to the connection and keeps it alive with pings.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Warn().Err(err).Str("remote", c.conn.RemoteAddr().String()).Msg("websocket write")
				return
			}

		case <-c.slow:
			log.Warn().Str("gameId", c.session.ID()).Msg("stream too slow, closing")
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
