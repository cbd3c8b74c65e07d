package wsgate

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type envelope struct {
	t   int
	msg []byte
}

// Session wraps one websocket connection and tracks its lifecycle.
type Session struct {
	ID      string
	Request *http.Request

	conn       *websocket.Conn
	output     chan envelope
	outputDone chan struct{}
	gateway    *Gateway
	logger     zerolog.Logger

	state     atomic.Int32
	closeCode atomic.Int32
	localCode atomic.Int32
	closing   atomic.Bool
	closeOnce sync.Once
}

func newSession(g *Gateway, r *http.Request) *Session {
	id := uuid.NewString()

	return &Session{
		ID:         id,
		Request:    r,
		output:     make(chan envelope, g.Config.MessageBufferSize),
		outputDone: make(chan struct{}),
		gateway:    g,
		logger: g.logger.With().
			Str("session_id", id).
			Str("path", r.URL.Path).
			Logger(),
	}
}

func (s *Session) transition(to State) bool {
	for {
		from := s.State()
		if !canTransition(from, to) {
			return false
		}
		if s.state.CompareAndSwap(int32(from), int32(to)) {
			return true
		}
	}
}

func (s *Session) open(conn *websocket.Conn) bool {
	s.conn = conn
	return s.transition(StateOpen)
}

// reject moves a session that never completed its handshake to Closed.
func (s *Session) reject() {
	s.closeOnce.Do(func() {
		s.closeCode.Store(CloseAbnormalClosure)
		s.transition(StateClosed)
		close(s.outputDone)
	})
}

func (s *Session) close(code int) {
	s.closeOnce.Do(func() {
		s.closeCode.Store(int32(code))
		s.transition(StateClosed)
		close(s.outputDone)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

func (s *Session) writeMessage(message envelope) error {
	if s.State() != StateOpen {
		return ErrWriteClosed
	}

	select {
	case s.output <- message:
		return nil
	case <-s.outputDone:
		return ErrWriteClosed
	default:
		return ErrMessageBufferFull
	}
}

func (s *Session) writeRaw(message envelope) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.gateway.Config.WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(message.t, message.msg)
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.gateway.Config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.output:
			if err := s.writeRaw(msg); err != nil {
				s.logger.Debug().Err(err).Msg("write failed, dropping connection")
				_ = s.conn.Close()
				return
			}

			if msg.t == websocket.CloseMessage {
				// The peer gets WriteWait to answer the close frame.
				conn := s.conn
				time.AfterFunc(s.gateway.Config.WriteWait, func() {
					_ = conn.Close()
				})
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.gateway.Config.WriteWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug().Err(err).Msg("ping failed, dropping connection")
				_ = s.conn.Close()
				return
			}
		case <-s.outputDone:
			return
		}
	}
}

// readPump delivers frames to consumer one at a time until the connection ends
// and returns the close code of the session.
func (s *Session) readPump(consumer Consumer) int {
	config := s.gateway.Config

	s.conn.SetReadLimit(config.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(config.PongWait))

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		t, data, err := s.conn.ReadMessage()
		if err != nil {
			return s.closeCodeFor(err)
		}

		// Frames arriving after our close frame are dropped.
		if s.closing.Load() {
			continue
		}

		msg := Message{Type: MessageType(t), Data: data}
		if err := consumer.OnReceive(s, msg); err != nil {
			s.logger.Error().Err(err).Str("message_type", msg.Type.String()).Msg("consumer failed to handle message")
			if cerr := s.CloseWithCode(CloseInternalServerErr, "internal error"); cerr != nil {
				s.localCode.CompareAndSwap(0, CloseInternalServerErr)
				s.closing.Store(true)
				_ = s.conn.Close()
			}
		}
	}
}

func (s *Session) closeCodeFor(err error) int {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code
	}
	if code := s.localCode.Load(); code != 0 {
		return int(code)
	}
	return CloseAbnormalClosure
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// IsClosed returns the status of the connection.
func (s *Session) IsClosed() bool {
	return s.State() == StateClosed
}

// CloseCode returns the code the session closed with, or 0 while it is not closed.
func (s *Session) CloseCode() int {
	if !s.IsClosed() {
		return 0
	}
	return int(s.closeCode.Load())
}

func (s *Session) checkWritable() error {
	switch s.State() {
	case StateConnecting:
		return ErrSessionNotOpen
	case StateClosed:
		return ErrSessionClosed
	}
	return nil
}

// Write writes a text message to the session.
func (s *Session) Write(msg []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	return s.writeMessage(envelope{t: websocket.TextMessage, msg: msg})
}

// WriteBinary writes a binary message to the session.
func (s *Session) WriteBinary(msg []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	return s.writeMessage(envelope{t: websocket.BinaryMessage, msg: msg})
}

// Close closes the session with CloseNormalClosure.
func (s *Session) Close() error {
	return s.CloseWithCode(CloseNormalClosure, "")
}

// CloseWithCode starts the closing handshake with the given code and reason.
func (s *Session) CloseWithCode(code int, text string) error {
	if err := s.checkWritable(); err != nil {
		return err
	}

	s.localCode.CompareAndSwap(0, int32(code))
	if err := s.writeMessage(envelope{t: websocket.CloseMessage, msg: FormatCloseMessage(code, text)}); err != nil {
		return err
	}
	s.closing.Store(true)
	return nil
}

// LocalAddr returns the local addr of the connection, nil before the handshake.
func (s *Session) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// RemoteAddr returns the remote addr of the connection, nil before the handshake.
func (s *Session) RemoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}
