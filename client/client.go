// Package client implements a websocket client for talking to a wsgate server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/wsgate/wsgate"
)

var (
	ErrNotConnected = errors.New("client is not connected")
	ErrClosed       = errors.New("client connection is closed")
)

// HandshakeError is returned by Connect when the server refuses the upgrade.
type HandshakeError struct {
	StatusCode int
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("websocket handshake refused with status %d", e.StatusCode)
}

func (e *HandshakeError) Unwrap() error {
	return websocket.ErrBadHandshake
}

type envelope struct {
	t   int
	msg []byte
}

// Client is a single websocket connection to a server.
type Client struct {
	URL    url.URL
	Dialer *websocket.Dialer
	Config *wsgate.Config
	Header http.Header

	messageHandler func(wsgate.Message)
	errorHandler   func(error)
	closeHandler   func(code int, text string)

	conn      *websocket.Conn
	output    chan envelope
	done      chan struct{}
	mu        sync.Mutex
	open      bool
	closeCode atomic.Int32
}

func New(u url.URL) *Client {
	return &Client{
		URL:            u,
		Dialer:         websocket.DefaultDialer,
		Config:         wsgate.DefaultConfig(),
		messageHandler: func(wsgate.Message) {},
		errorHandler:   func(error) {},
		closeHandler:   func(int, string) {},
		done:           make(chan struct{}),
	}
}

// HandleMessage fires fn for every data frame received from the server.
func (c *Client) HandleMessage(fn func(wsgate.Message)) {
	c.messageHandler = fn
}

// HandleError fires fn when the connection fails.
func (c *Client) HandleError(fn func(error)) {
	c.errorHandler = fn
}

// HandleClose fires fn once when the connection has ended.
func (c *Client) HandleClose(fn func(code int, text string)) {
	c.closeHandler = fn
}

// Connect performs the handshake and starts the read and write loops.
func (c *Client) Connect(ctx context.Context) error {
	conn, resp, err := c.Dialer.DialContext(ctx, c.URL.String(), c.Header)
	if err != nil {
		if resp != nil {
			return errors.WithStack(&HandshakeError{StatusCode: resp.StatusCode})
		}
		return errors.Wrapf(err, "dialing %s", c.URL.String())
	}

	c.mu.Lock()
	c.conn = conn
	c.output = make(chan envelope, c.Config.MessageBufferSize)
	c.open = true
	c.mu.Unlock()

	go c.writePump()
	go c.readPump()

	return nil
}

func (c *Client) readPump() {
	defer c.finish()

	c.conn.SetReadLimit(c.Config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.Config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.Config.PongWait))
	})
	c.conn.SetPingHandler(func(data string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.Config.PongWait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.Config.WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		t, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.closeCode.Store(int32(closeErr.Code))
				c.closeHandler(closeErr.Code, closeErr.Text)
				return
			}
			c.closeCode.CompareAndSwap(0, wsgate.CloseAbnormalClosure)
			c.errorHandler(err)
			c.closeHandler(int(c.closeCode.Load()), "")
			return
		}

		c.messageHandler(wsgate.Message{Type: wsgate.MessageType(t), Data: data})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.Config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.output:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.Config.WriteWait))
			if err := c.conn.WriteMessage(msg.t, msg.msg); err != nil {
				c.errorHandler(err)
				_ = c.conn.Close()
				return
			}
			if msg.t == websocket.CloseMessage {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.Config.WriteWait)); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return
	}
	c.open = false
	_ = c.conn.Close()
	close(c.done)
}

func (c *Client) send(message envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if !c.open {
		return ErrClosed
	}

	select {
	case c.output <- message:
		return nil
	default:
		return wsgate.ErrMessageBufferFull
	}
}

// Send writes a text message to the server.
func (c *Client) Send(msg []byte) error {
	return c.send(envelope{t: websocket.TextMessage, msg: msg})
}

// SendBinary writes a binary message to the server.
func (c *Client) SendBinary(msg []byte) error {
	return c.send(envelope{t: websocket.BinaryMessage, msg: msg})
}

// Close sends a close frame with code and waits for the server to answer, at most
// WriteWait. The connection is torn down either way.
func (c *Client) Close(code int, text string) error {
	if err := c.send(envelope{t: websocket.CloseMessage, msg: wsgate.FormatCloseMessage(code, text)}); err != nil {
		return err
	}

	select {
	case <-c.done:
	case <-time.After(c.Config.WriteWait):
		c.finish()
	}
	return nil
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// CloseCode returns the close code received from the server, CloseAbnormalClosure
// if the connection dropped without one, or 0 while connected.
func (c *Client) CloseCode() int {
	return int(c.closeCode.Load())
}

// IsClosed returns the status of the connection.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && !c.open
}
