// Package transport mounts a wsgate.ProtocolRouter on one of the supported HTTP engines.
package transport

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/wsgate/wsgate"
)

const (
	EngineGin  = "gin"
	EngineEcho = "echo"
	EngineStd  = "std"
)

const HealthPath = "/healthz"

type health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func healthOf(g *wsgate.Gateway) health {
	if g.IsClosed() {
		return health{Status: "closing", Sessions: g.Len()}
	}
	return health{Status: "ok", Sessions: g.Len()}
}

// Handler builds the root handler for engine. Websocket upgrades on any path are
// passed to router; plain HTTP requests reach the health endpoint or router.HTTP.
func Handler(engine string, g *wsgate.Gateway, router *wsgate.ProtocolRouter, logger zerolog.Logger) (http.Handler, error) {
	logger = logger.With().Str("component", "http").Str("engine", engine).Logger()

	switch engine {
	case EngineGin:
		return NewGinEngine(g, router, logger), nil
	case EngineEcho:
		return NewEcho(g, router, logger), nil
	case EngineStd:
		return NewServeMux(g, router, logger), nil
	default:
		return nil, errors.Errorf("unknown engine %q", engine)
	}
}
