// Package ws implements the real-time trade broadcast hub. The hub keeps no
// replay log: late-connecting subscribers miss prior events and catch up by
// polling the ledger.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBufSize  = 64
	broadcastDepth = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TradeEvent is the broadcast message pushed to subscribers after a ledger
// write.
type TradeEvent struct {
	Type      string         `json:"type"`
	AgentID   string         `json:"agentId"`
	Chain     types.Chain    `json:"chain"`
	Data      TradeEventData `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// TradeEventData carries the trade fields the real-time UI renders.
type TradeEventData struct {
	TxSignature    string          `json:"txSignature"`
	Platform       string          `json:"platform"`
	TradeType      types.TradeType `json:"tradeType"`
	IsBuyback      bool            `json:"isBuyback"`
	TradeValueUSD  float64         `json:"tradeValueUsd"`
	TokenInSymbol  string          `json:"tokenInSymbol,omitempty"`
	TokenOutSymbol string          `json:"tokenOutSymbol,omitempty"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	agentID string // empty subscribes to all agents
}

type outbound struct {
	agentID string
	payload []byte
}

// Hub fans trade events out to all connected subscribers. One instance per
// process; delivery is at-most-once, in write order, with no replay.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	clients    map[*client]bool
	logger     *logging.Logger
	done       chan struct{}
}

// NewHub creates a broadcast hub. Run must be started before clients connect.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, broadcastDepth),
		clients:    make(map[*client]bool),
		logger:     logger.WithField("component", "ws_hub"),
		done:       make(chan struct{}),
	}
}

// Run processes register, unregister and broadcast requests until Stop is
// called. Intended to run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.WithField("clients", len(h.clients)).Debug("Subscriber connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if c.agentID != "" && c.agentID != msg.agentID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// Slow subscriber: drop the message rather than block
					// the hub.
					h.logger.Debug("Dropping message for slow subscriber")
				}
			}

		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects all subscribers.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast queues a trade event for delivery to matching subscribers.
// Never blocks: if the hub is saturated the event is dropped and logged.
func (h *Hub) Broadcast(event *TradeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{agentID: event.AgentID, payload: payload}:
	default:
		h.logger.Warn("Broadcast queue full, dropping event")
	}
	return nil
}

// ServeWS upgrades an HTTP request to a websocket subscription. An optional
// agentId query parameter filters the stream to one agent.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, clientBufSize),
		agentID: r.URL.Query().Get("agentId"),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) // nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) // nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) // nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) // nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribers only listen; drain and discard anything they send.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
