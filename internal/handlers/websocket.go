package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Client is one websocket connection. Its id doubles as the participant's
// visitor id.
type Client struct {
	ID   string
	Conn *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func newClient(conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		ID:     id,
		Conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("conn_id", id)),
	}
}

// Send queues a frame without blocking; it reports false when the buffer
// is full or the connection is closing.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

// HandleWebSocket upgrades the request and runs the connection's pumps.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(conn, h.logger)
	h.track(client)
	h.manager.Connect(client.ID, client)

	client.logger.Info("client connected", zap.String("remote_addr", c.ClientIP()))

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) readPump(h *Handler) {
	defer func() {
		h.manager.Disconnect(c.ID)
		h.untrack(c)
		c.close()
		c.logger.Info("client disconnected")
	}()

	c.Conn.SetReadLimit(h.maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		h.manager.HandleFrame(c.ID, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// CloseConnections sends a going-away close frame to every live client
// and closes its connection. http.Server.Shutdown does not reach hijacked
// connections, so the server calls this from its shutdown hook.
func (h *Handler) CloseConnections() {
	h.clientsMu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		_ = c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.close()
	}

	h.logger.Info("closed websocket connections", zap.Int("count", len(clients)))
}

func (h *Handler) track(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Handler) untrack(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	delete(h.clients, c)
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Origin checking is handled by middleware
			return true
		},
	}
}
