//go:generate go run go.uber.org/mock/mockgen -source=consumer.go -destination=internal/mocks/mock_consumer.go -package=mocks

package wsgate

import "github.com/gorilla/websocket"

// MessageType distinguishes text frames from binary frames.
type MessageType int

const (
	TextMessage   MessageType = websocket.TextMessage
	BinaryMessage MessageType = websocket.BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is a single data frame received from the peer.
type Message struct {
	Type MessageType
	Data []byte
}

// Text returns the payload of a text frame. ok is false for binary frames.
func (m Message) Text() (text string, ok bool) {
	if m.Type != TextMessage {
		return "", false
	}
	return string(m.Data), true
}

// Consumer reacts to the lifecycle of one websocket connection.
//
// The gateway calls the hooks from a single goroutine per connection, in order:
// OnConnect once, OnReceive for every data frame, OnDisconnect once if the
// connection was accepted. There is no default behavior; every hook is explicit.
type Consumer interface {
	// OnConnect runs before the handshake completes. A nil error accepts the
	// connection, any other error rejects it with HTTP 403.
	OnConnect(s *Session) error
	// OnReceive handles one data frame. A non-nil error closes the session with
	// CloseInternalServerErr.
	OnReceive(s *Session, msg Message) error
	// OnDisconnect runs once after the session has closed. code is the close code
	// sent by the peer, the code the server closed with, or CloseAbnormalClosure.
	OnDisconnect(s *Session, code int)
}

// ConsumerFactory builds a fresh Consumer for every incoming connection.
type ConsumerFactory func() Consumer
