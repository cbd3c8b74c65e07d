package wsgate

import "github.com/pkg/errors"

var (
	ErrClosed            = errors.New("gateway instance is closed")
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionNotOpen    = errors.New("session is not open yet")
	ErrWriteClosed       = errors.New("tried to write to a closed session")
	ErrMessageBufferFull = errors.New("session message buffer is full")
	ErrNoRoute           = errors.New("no route found for path")
	ErrConnectRejected   = errors.New("consumer rejected the connection")
	ErrInvalidRoute      = errors.New("invalid route")
)
