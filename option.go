package wsgate

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Option func(*Gateway)

func WithConfig(config *Config) Option {
	return func(g *Gateway) {
		if config != nil {
			g.Config = config
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.With().Str("component", "gateway").Logger()
	}
}

func WithReadBufferSize(size int) Option {
	return func(g *Gateway) {
		g.Upgrader.ReadBufferSize = size
	}
}

func WithWriteBufferSize(size int) Option {
	return func(g *Gateway) {
		g.Upgrader.WriteBufferSize = size
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.Upgrader.HandshakeTimeout = d
	}
}

func WithEnableCompression() Option {
	return func(g *Gateway) {
		g.Upgrader.EnableCompression = true
	}
}

func WithSubprotocols(protocols []string) Option {
	return func(g *Gateway) {
		g.Upgrader.Subprotocols = protocols
	}
}

func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(g *Gateway) {
		g.Upgrader.CheckOrigin = fn
	}
}

// WithAllowedOrigins accepts handshakes whose Origin host is in hosts, or any origin
// when hosts contains "*". Requests without an Origin header are always accepted.
func WithAllowedOrigins(hosts []string) Option {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		allowed[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	return WithCheckOrigin(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := allowed[strings.ToLower(u.Host)]
		return ok
	})
}
