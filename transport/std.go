package transport

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wsgate/wsgate"
)

func NewServeMux(g *wsgate.Gateway, router *wsgate.ProtocolRouter, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(healthOf(g)); err != nil {
			logger.Warn().Err(err).Msg("writing health response")
		}
	})

	mux.Handle("/", router)

	return mux
}
