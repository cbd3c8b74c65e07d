package wsgate

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Route binds a request path to the factory of the consumer serving it.
type Route struct {
	Path    string
	Factory ConsumerFactory
}

// URLRouter dispatches websocket requests to the first route whose path matches
// the request path exactly. The leading slash is ignored on both sides, so the
// route "test/" serves "/test/" but not "/test" or "/test/x".
type URLRouter struct {
	gateway    *Gateway
	routes     []Route
	rejectCode int
}

type URLRouterOption func(*URLRouter)

// WithRejectCode makes the router accept unmatched requests and immediately close
// them with code instead of refusing the handshake with HTTP 404. code must be in
// the 4000-4999 application range.
func WithRejectCode(code int) URLRouterOption {
	return func(u *URLRouter) {
		u.rejectCode = code
	}
}

// NewURLRouter builds a router over routes, keeping their order.
func NewURLRouter(g *Gateway, routes []Route, opts ...URLRouterOption) (*URLRouter, error) {
	u := &URLRouter{gateway: g}

	for i, route := range routes {
		path := normalizePath(route.Path)
		if path == "" {
			return nil, errors.Wrapf(ErrInvalidRoute, "route %d has an empty path", i)
		}
		if route.Factory == nil {
			return nil, errors.Wrapf(ErrInvalidRoute, "route %q has no consumer factory", route.Path)
		}
		u.routes = append(u.routes, Route{Path: path, Factory: route.Factory})
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.rejectCode != 0 && !isApplicationCloseCode(u.rejectCode) {
		return nil, errors.Errorf("reject code %d is outside the 4000-4999 range", u.rejectCode)
	}

	return u, nil
}

// Match returns the factory of the first route matching path.
func (u *URLRouter) Match(path string) (ConsumerFactory, bool) {
	path = normalizePath(path)
	for _, route := range u.routes {
		if route.Path == path {
			return route.Factory, true
		}
	}
	return nil, false
}

// Routes returns a copy of the routing table.
func (u *URLRouter) Routes() []Route {
	return append([]Route(nil), u.routes...)
}

func (u *URLRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	factory, ok := u.Match(r.URL.Path)
	if !ok {
		u.reject(w, r)
		return
	}

	if err := u.gateway.HandleRequest(w, r, factory); err != nil {
		u.gateway.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("websocket request ended with error")
	}
}

func (u *URLRouter) reject(w http.ResponseWriter, r *http.Request) {
	logger := u.gateway.logger.With().Str("path", r.URL.Path).Logger()

	if u.rejectCode == 0 {
		logger.Info().Err(ErrNoRoute).Msg("refusing websocket handshake")
		http.NotFound(w, r)
		return
	}

	conn, err := u.gateway.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger.Info().Err(ErrNoRoute).Int("code", u.rejectCode).Msg("closing unrouted websocket")
	deadline := time.Now().Add(u.gateway.Config.WriteWait)
	if err := conn.WriteControl(websocket.CloseMessage, FormatCloseMessage(u.rejectCode, "no route"), deadline); err != nil {
		return
	}

	// Drain until the peer answers the close frame.
	_ = conn.SetReadDeadline(deadline)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ProtocolRouter splits incoming requests by protocol: websocket upgrades go to
// WebSocket, everything else to HTTP. A nil handler answers 404.
type ProtocolRouter struct {
	HTTP      http.Handler
	WebSocket http.Handler
}

func (p *ProtocolRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := p.HTTP
	if websocket.IsWebSocketUpgrade(r) {
		handler = p.WebSocket
	}

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler.ServeHTTP(w, r)
}

func normalizePath(path string) string {
	return strings.TrimPrefix(path, "/")
}
