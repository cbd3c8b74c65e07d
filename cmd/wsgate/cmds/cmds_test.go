package cmds

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgate/wsgate"
	"github.com/wsgate/wsgate/client"
	"github.com/wsgate/wsgate/internal/settings"
)

func testSettings() *settings.Settings {
	return &settings.Settings{
		Addr:              "127.0.0.1:0",
		Engine:            "gin",
		LogLevel:          "info",
		LogFormat:         "json",
		ShutdownTimeout:   time.Second,
		WriteWait:         time.Second,
		PongWait:          time.Minute,
		PingPeriod:        30 * time.Second,
		MaxMessageSize:    1024,
		MessageBufferSize: 16,
	}
}

func startServer(t *testing.T, s *settings.Settings) (*wsgate.Gateway, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway, handler, err := newHandler(s, zerolog.Nop())
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return gateway, strings.Replace(server.URL, "http", "ws", 1)
}

func TestProbeTestRouteIsSilent(t *testing.T) {
	_, base := startServer(t, testSettings())

	opts := probeOptions{URL: base + "/test/", Message: "ping", Wait: 100 * time.Millisecond, Timeout: time.Second}
	result, err := probe(context.Background(), opts, zerolog.Nop())
	require.NoError(t, err)

	assert.Empty(t, result.Replies)
	assert.Equal(t, wsgate.CloseNormalClosure, result.CloseCode)

	var out bytes.Buffer
	require.NoError(t, printProbeResult(&out, opts, result))
	assert.Equal(t, "no reply within 100ms\nclosed with code 1000\n", out.String())
}

func TestProbeUnknownRoute(t *testing.T) {
	_, base := startServer(t, testSettings())

	opts := probeOptions{URL: base + "/nope/", Message: "ping", Wait: 10 * time.Millisecond, Timeout: time.Second}
	_, err := probe(context.Background(), opts, zerolog.Nop())

	var handshakeErr *client.HandshakeError
	require.ErrorAs(t, err, &handshakeErr)
	assert.Equal(t, 404, handshakeErr.StatusCode)
}

func TestProbeRejectCode(t *testing.T) {
	s := testSettings()
	s.RejectCode = wsgate.CloseNoRoute
	_, base := startServer(t, s)

	opts := probeOptions{URL: base + "/nope/", Message: "ping", Wait: time.Second, Timeout: time.Second}
	result, err := probe(context.Background(), opts, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, wsgate.CloseNoRoute, result.CloseCode)
}

func TestNewHandlerEngines(t *testing.T) {
	for _, engine := range []string{"gin", "echo", "std"} {
		s := testSettings()
		s.Engine = engine
		s.AllowedOrigins = []string{"example.com"}
		_, _, err := newHandler(s, zerolog.Nop())
		assert.NoError(t, err, engine)
	}

	s := testSettings()
	s.Engine = "fasthttp"
	_, _, err := newHandler(s, zerolog.Nop())
	assert.Error(t, err)
}

func TestServeShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() { errChan <- serve(ctx, testSettings(), zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestLoadSettingsFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{settings.SettingsEnv, "WSGATE_ENGINE", "WSGATE_ADDR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	root := NewRootCommand()
	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)

	require.NoError(t, serveCmd.ParseFlags([]string{"--engine", "echo", "--addr", ":9999"}))

	s, err := loadSettings(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, "echo", s.Engine)
	assert.Equal(t, ":9999", s.Addr)

	require.NoError(t, serveCmd.ParseFlags([]string{"--engine", "fasthttp"}))
	_, err = loadSettings(serveCmd)
	assert.Error(t, err)
}
