package transport

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/wsgate/wsgate"
)

func NewEcho(g *wsgate.Gateway, router *wsgate.ProtocolRouter, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover(), echoLogger(logger))

	e.GET(HealthPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthOf(g))
	})

	e.Any("/*", echo.WrapHandler(router))

	return e
}

func echoLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Err(err).
				Msg("request")
			return err
		}
	}
}
