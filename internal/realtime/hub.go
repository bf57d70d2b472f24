// Package realtime pushes engine snapshots to browsers over WebSocket.
//
// A Hub groups connections by game id. The engine's Renderer for a game is
// Hub.Renderer(id): every board change is marshalled once and fanned out to
// all connections watching that game. Incoming frames are ignored; moves
// arrive over plain HTTP.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/slidepuzzle/internal/puzzle"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer      = 64
	broadcastBuffer = 256
)

// Event names carried in Message.Event.
const (
	EventState  = "state_update"
	EventSolved = "solved"
)

// Message is the JSON frame sent to clients.
type Message struct {
	GameID string           `json:"gameId"`
	Event  string           `json:"event"`
	State  *puzzle.Snapshot `json:"state,omitempty"`
	Data   any              `json:"data,omitempty"`
}

// Client is one WebSocket connection watching one game.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	upgrader websocket.Upgrader

	// Registered clients by game id. Owned by Run.
	games map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	counts     chan countReq
	done       chan struct{}
}

type countReq struct {
	gameID string
	reply  chan int
}

// NewHub creates a hub. With no allowed origins every origin is accepted.
func NewHub(allowedOrigins ...string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			allowed[o] = true
		}
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin] || sameHost(r, origin)
			},
		},
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countReq),
		done:       make(chan struct{}),
	}
}

func sameHost(r *http.Request, origin string) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Run is the hub's event loop. It returns when ctx is cancelled, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.games {
				for c := range clients {
					close(c.send)
				}
			}
			h.games = make(map[string]map[*Client]bool)
			return

		case c := <-h.register:
			if h.games[c.gameID] == nil {
				h.games[c.gameID] = make(map[*Client]bool)
			}
			h.games[c.gameID][c] = true
			log.Debug().Str("gameId", c.gameID).Int("clients", len(h.games[c.gameID])).Msg("ws client registered")

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.broadcast:
			h.deliver(m)

		case q := <-h.counts:
			q.reply <- len(h.games[q.gameID])
		}
	}
}

// Clients reports how many connections watch gameID (0 once the hub stopped).
func (h *Hub) Clients(gameID string) int {
	q := countReq{gameID: gameID, reply: make(chan int, 1)}
	select {
	case h.counts <- q:
		return <-q.reply
	case <-h.done:
		return 0
	}
}

// ServeWS upgrades the request and attaches the connection to gameID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("websocket upgrade failed")
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), gameID: gameID}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Broadcast queues a message for every client watching gameID. It never
// blocks the caller: when the queue is full the message is dropped.
func (h *Hub) Broadcast(gameID, event string, snap *puzzle.Snapshot, data any) {
	m := &Message{GameID: gameID, Event: event, State: snap, Data: data}
	select {
	case h.broadcast <- m:
	default:
		log.Warn().Str("gameId", gameID).Str("event", event).Msg("ws broadcast queue full, dropping")
	}
}

// Renderer returns a puzzle.Renderer that broadcasts every snapshot of gameID.
func (h *Hub) Renderer(gameID string) puzzle.Renderer {
	return puzzle.RenderFunc(func(s puzzle.Snapshot) {
		event := EventState
		if s.State == puzzle.StateSolved {
			event = EventSolved
		}
		h.Broadcast(gameID, event, &s, nil)
	})
}

func (h *Hub) remove(c *Client) {
	clients, ok := h.games[c.gameID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.games, c.gameID)
	}
	log.Debug().Str("gameId", c.gameID).Int("clients", len(clients)).Msg("ws client unregistered")
}

func (h *Hub) deliver(m *Message) {
	clients, ok := h.games[m.GameID]
	if !ok {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Msg("marshal ws message")
		return
	}
	for c := range clients {
		select {
		case c.send <- data:
		default:
			// slow consumer
			h.remove(c)
		}
	}
}

// readPump drains the connection so pongs and close frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("gameId", c.gameID).Msg("websocket read")
			}
			return
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
