// Package ws streams admitted-bid events for a single auction to WebSocket
// clients. Each connection holds its own feed subscription, so clients never
// contend on a shared broadcast loop.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming frames; clients only ever send pongs and
	// the occasional close.
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from the marketplace frontend on a separate
		// origin; CORS enforcement happens at the LB in front of this service.
		return true
	},
}

// Hub tracks live bid-stream connections and tears them down on shutdown.
type Hub struct {
	feed   domain.BidFeed
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[*websocket.Conn]context.CancelFunc
	baseCtx context.Context
}

// NewHub creates a Hub over the given bid feed.
func NewHub(feed domain.BidFeed, logger *slog.Logger) *Hub {
	return &Hub{
		feed:    feed,
		logger:  logger.With(slog.String("component", "ws")),
		cancels: make(map[*websocket.Conn]context.CancelFunc),
		baseCtx: context.Background(),
	}
}

// Run pins connection lifetimes to ctx and blocks until it is cancelled, then
// closes every live connection.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.baseCtx = ctx
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	for conn, cancel := range h.cancels {
		cancel()
		conn.Close()
		delete(h.cancels, conn)
	}
	h.mu.Unlock()
	return ctx.Err()
}

// HandleWS upgrades the request and streams the auction's bid events until
// the client disconnects.
// GET /ws?auction=<id>
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	auctionID := r.URL.Query().Get("auction")
	if !domain.IsAuctionID(auctionID) {
		http.Error(w, `{"error":"invalid auction id"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	connCtx, cancel := context.WithCancel(h.baseCtx)
	h.cancels[conn] = cancel
	total := len(h.cancels)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("auction_id", auctionID),
		slog.Int("total_clients", total),
	)

	msgs, err := h.feed.SubscribeAuction(connCtx, auctionID)
	if err != nil {
		h.logger.Error("feed subscribe failed",
			slog.String("auction_id", auctionID),
			slog.String("error", err.Error()),
		)
		h.drop(conn)
		return
	}

	if hello, err := json.Marshal(map[string]string{
		"type":    "subscribed",
		"auction": auctionID,
	}); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, hello)
	}

	go h.writePump(conn, msgs)
	go h.readPump(conn)
}

// drop cancels the connection's subscription and closes it.
func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if cancel, ok := h.cancels[conn]; ok {
		cancel()
		delete(h.cancels, conn)
	}
	h.mu.Unlock()
	conn.Close()
}

// writePump forwards feed payloads as text frames and keeps the connection
// alive with pings. It exits when the feed channel closes or a write fails.
func (h *Hub) writePump(conn *websocket.Conn, msgs <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(conn)
	}()

	for {
		select {
		case payload, ok := <-msgs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so pongs and close frames are processed.
// Clients send nothing else on this endpoint.
func (h *Hub) readPump(conn *websocket.Conn) {
	defer h.drop(conn)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("unexpected close",
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}
