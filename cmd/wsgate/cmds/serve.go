package cmds

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wsgate/wsgate"
	"github.com/wsgate/wsgate/internal/consumers"
	"github.com/wsgate/wsgate/internal/logging"
	"github.com/wsgate/wsgate/internal/settings"
	"github.com/wsgate/wsgate/transport"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the websocket routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			logger, err := logging.New(s.LogLevel, s.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, s, logger)
		},
	}

	cmd.Flags().String("settings", "", "dotenv settings file (defaults to $"+settings.SettingsEnv+")")
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("engine", "", "http engine (gin, echo, std)")

	return cmd
}

// loadSettings reads the settings and applies the flags that were set explicitly.
func loadSettings(cmd *cobra.Command) (*settings.Settings, error) {
	file, _ := cmd.Flags().GetString("settings")

	s, err := settings.Read(file)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"addr":       &s.Addr,
		"engine":     &s.Engine,
		"log-level":  &s.LogLevel,
		"log-format": &s.LogFormat,
	}
	for name, field := range overrides {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if *field, err = cmd.Flags().GetString(name); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// newHandler wires the gateway, the application routes and the HTTP engine.
func newHandler(s *settings.Settings, logger zerolog.Logger) (*wsgate.Gateway, http.Handler, error) {
	opts := []wsgate.Option{
		wsgate.WithConfig(s.GatewayConfig()),
		wsgate.WithLogger(logger),
	}
	if len(s.AllowedOrigins) > 0 {
		opts = append(opts, wsgate.WithAllowedOrigins(s.AllowedOrigins))
	}
	gateway := wsgate.New(opts...)

	var routerOpts []wsgate.URLRouterOption
	if s.RejectCode != 0 {
		routerOpts = append(routerOpts, wsgate.WithRejectCode(s.RejectCode))
	}
	ws, err := wsgate.NewURLRouter(gateway, consumers.WebSocketRoutes(), routerOpts...)
	if err != nil {
		return nil, nil, err
	}

	handler, err := transport.Handler(s.Engine, gateway, &wsgate.ProtocolRouter{WebSocket: ws}, logger)
	if err != nil {
		return nil, nil, err
	}
	return gateway, handler, nil
}

func serve(ctx context.Context, s *settings.Settings, logger zerolog.Logger) error {
	gateway, handler, err := newHandler(s, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    s.Addr,
		Handler: handler,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.Addr).Str("engine", s.Engine).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- errors.Wrap(err, "http server")
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("server is shutting down")
	case err := <-errChan:
		_ = gateway.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	if err := gateway.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing gateway")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down http server")
	}

	logger.Info().Msg("server exited properly")
	return nil
}
