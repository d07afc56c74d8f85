package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mossy-p/watchparty/config"
	"github.com/mossy-p/watchparty/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires every route of the server onto a fresh gin engine.
func NewRouter(h *Handler, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", h.Health)
	router.GET("/ping", h.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/create-room", h.CreateRoom)
		api.GET("/room/:roomId", h.GetRoom)
	}

	router.GET("/ws", h.HandleWebSocket)

	return router
}
