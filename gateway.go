package wsgate

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Gateway upgrades HTTP requests to websocket sessions and drives each session's
// Consumer through its lifecycle.
type Gateway struct {
	Config   *Config
	Upgrader *websocket.Upgrader
	logger   zerolog.Logger
	hub      *hub
}

// New creates a gateway with the default Upgrader and Config. A Config that fails
// validation is replaced by DefaultConfig.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		Config: DefaultConfig(),
		Upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: zerolog.Nop(),
		hub:    newHub(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if err := g.Config.Validate(); err != nil {
		g.logger.Error().Err(err).Msg("invalid config, using defaults")
		g.Config = DefaultConfig()
	}

	return g
}

// HandleRequest runs one connection to completion: OnConnect, the upgrade, serial
// OnReceive calls and a final OnDisconnect. It returns when the session has closed.
func (g *Gateway) HandleRequest(w http.ResponseWriter, r *http.Request, factory ConsumerFactory) error {
	if g.hub.closed() {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return ErrClosed
	}

	consumer := factory()
	if consumer == nil {
		g.logger.Error().Str("path", r.URL.Path).Msg("consumer factory returned nil")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return errors.Wrap(ErrInvalidRoute, "consumer factory returned nil")
	}
	session := newSession(g, r)

	if err := consumer.OnConnect(session); err != nil {
		session.reject()
		session.logger.Info().Err(err).Msg("connection rejected by consumer")
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return errors.Wrapf(ErrConnectRejected, "%v", err)
	}

	conn, err := g.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		session.reject()
		session.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return errors.Wrap(err, "websocket upgrade")
	}

	session.open(conn)

	if !g.hub.register(session) {
		deadline := time.Now().Add(g.Config.WriteWait)
		_ = conn.WriteControl(websocket.CloseMessage, FormatCloseMessage(CloseGoingAway, ""), deadline)
		session.close(CloseGoingAway)
		consumer.OnDisconnect(session, CloseGoingAway)
		return ErrClosed
	}

	session.logger.Debug().Msg("session opened")

	go session.writePump()

	code := session.readPump(consumer)

	g.hub.unregister(session)
	session.close(code)
	g.logClose(session, code)

	consumer.OnDisconnect(session, code)

	return nil
}

func (g *Gateway) logClose(s *Session, code int) {
	if isExpectedCloseCode(code) || int32(code) == s.localCode.Load() {
		s.logger.Debug().Int("code", code).Msg("session closed")
		return
	}
	s.logger.Warn().Int("code", code).Msg("session closed unexpectedly")
}

// Len returns the number of open sessions.
func (g *Gateway) Len() int {
	return g.hub.len()
}

// Sessions returns all open sessions.
func (g *Gateway) Sessions() ([]*Session, error) {
	if g.hub.closed() {
		return nil, ErrClosed
	}
	return g.hub.all(), nil
}

// Close closes the gateway and all open sessions with CloseGoingAway.
func (g *Gateway) Close() error {
	return g.CloseWithCode(CloseGoingAway, "server shutting down")
}

// CloseWithCode closes the gateway and all open sessions with the given code.
func (g *Gateway) CloseWithCode(code int, text string) error {
	if !g.hub.exit(code, text) {
		return ErrClosed
	}
	g.logger.Info().Int("code", code).Msg("gateway closed")
	return nil
}

// IsClosed returns the status of the gateway.
func (g *Gateway) IsClosed() bool {
	return g.hub.closed()
}
