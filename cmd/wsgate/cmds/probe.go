package cmds

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wsgate/wsgate"
	"github.com/wsgate/wsgate/client"
	"github.com/wsgate/wsgate/internal/logging"
)

type probeOptions struct {
	URL     string
	Message string
	Wait    time.Duration
	Timeout time.Duration
}

// ProbeResult is what a probe observed.
type ProbeResult struct {
	Replies   []wsgate.Message
	CloseCode int
}

func NewProbeCommand() *cobra.Command {
	opts := probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect to a websocket route, send one message and report any replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			if level == "" {
				level = "info"
			}
			logger, err := logging.New(level, format, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			result, err := probe(cmd.Context(), opts, logger)
			if err != nil {
				return err
			}
			return printProbeResult(cmd.OutOrStdout(), opts, result)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "ws://localhost:8000/test/", "websocket url")
	cmd.Flags().StringVar(&opts.Message, "message", "ping", "text message to send")
	cmd.Flags().DurationVar(&opts.Wait, "wait", time.Second, "how long to wait for replies")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "handshake timeout")

	return cmd
}

func probe(ctx context.Context, opts probeOptions, logger zerolog.Logger) (*ProbeResult, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing url %q", opts.URL)
	}

	replies := make(chan wsgate.Message, 16)

	c := client.New(*u)
	c.HandleMessage(func(msg wsgate.Message) {
		select {
		case replies <- msg:
		default:
		}
	})
	c.HandleError(func(err error) {
		logger.Debug().Err(err).Msg("connection error")
	})

	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := c.Connect(dialCtx); err != nil {
		return nil, err
	}
	logger.Info().Str("url", u.String()).Msg("connected")

	// The server may already have closed the connection, e.g. for an unknown route.
	if err := c.Send([]byte(opts.Message)); err != nil && !errors.Is(err, client.ErrClosed) {
		return nil, err
	}

	result := &ProbeResult{}
	timer := time.NewTimer(opts.Wait)
	defer timer.Stop()

wait:
	for {
		select {
		case msg := <-replies:
			result.Replies = append(result.Replies, msg)
		case <-c.Done():
			break wait
		case <-timer.C:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	if err := c.Close(wsgate.CloseNormalClosure, ""); err != nil && !errors.Is(err, client.ErrClosed) {
		return nil, err
	}
	<-c.Done()

	result.CloseCode = c.CloseCode()
	return result, nil
}

func printProbeResult(w io.Writer, opts probeOptions, result *ProbeResult) error {
	if len(result.Replies) == 0 {
		if _, err := fmt.Fprintf(w, "no reply within %s\n", opts.Wait); err != nil {
			return err
		}
	}
	for _, msg := range result.Replies {
		if _, err := fmt.Fprintf(w, "reply (%s): %q\n", msg.Type, msg.Data); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "closed with code %d\n", result.CloseCode)
	return err
}
