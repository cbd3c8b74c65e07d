package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wsgate/wsgate"
)

func NewGinEngine(g *wsgate.Gateway, router *wsgate.ProtocolRouter, logger zerolog.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), ginLogger(logger))

	engine.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, healthOf(g))
	})

	// gin presets 404 before NoRoute handlers run; a hijacked upgrade never
	// writes a status of its own.
	engine.NoRoute(func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			c.Status(http.StatusSwitchingProtocols)
		} else {
			c.Status(http.StatusOK)
		}
		router.ServeHTTP(c.Writer, c.Request)
	})

	return engine
}

func ginLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
