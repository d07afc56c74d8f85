package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/watchparty/config"
	"github.com/mossy-p/watchparty/internal/models"
	"github.com/mossy-p/watchparty/internal/session"
	"go.uber.org/zap"
)

// Handler serves the HTTP and websocket surface on top of a session
// manager.
type Handler struct {
	manager        *session.Manager
	logger         *zap.Logger
	upgrader       websocket.Upgrader
	maxMessageSize int64

	clientsMu sync.Mutex
	clients   map[*Client]struct{}
}

// NewHandler creates a Handler serving rooms of manager.
func NewHandler(manager *session.Manager, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		manager:        manager,
		logger:         logger.Named("http"),
		upgrader:       newUpgrader(),
		maxMessageSize: cfg.WebSocket.MaxMessageSize,
		clients:        make(map[*Client]struct{}),
	}
}

// CreateRoom creates a room; an optional username becomes its host name.
func (h *Handler) CreateRoom(c *gin.Context) {
	roomID := h.manager.CreateRoom(c.Query("username"))

	c.JSON(http.StatusOK, models.CreateRoomResponse{RoomID: roomID})
}

// GetRoom reports whether a room exists and its user count.
func (h *Handler) GetRoom(c *gin.Context) {
	userCount, exists := h.manager.RoomInfo(c.Param("roomId"))
	if !exists {
		c.JSON(http.StatusOK, models.RoomInfoResponse{Exists: false})
		return
	}

	c.JSON(http.StatusOK, models.RoomInfoResponse{Exists: true, UserCount: &userCount})
}

// Health reports liveness and the number of rooms in memory.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"rooms":     h.manager.RoomCount(),
		"timestamp": time.Now().UTC(),
	})
}

// Ping is a bare liveness check.
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
