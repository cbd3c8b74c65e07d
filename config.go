package wsgate

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds the per-session transport tuning shared by every connection of a Gateway.
type Config struct {
	WriteWait         time.Duration `validate:"gt=0"`
	PongWait          time.Duration `validate:"gt=0"`
	PingPeriod        time.Duration `validate:"gt=0,ltfield=PongWait"`
	MaxMessageSize    int64         `validate:"gt=0"`
	MessageBufferSize int           `validate:"gte=0"`
}

// DefaultConfig returns the tuning used by New when no config is given.
func DefaultConfig() *Config {
	return &Config{
		WriteWait:         10 * time.Second,
		PongWait:          60 * time.Second,
		PingPeriod:        (60 * time.Second * 9) / 10,
		MaxMessageSize:    64 * 1024,
		MessageBufferSize: 256,
	}
}

// Validate reports the first invalid field, if any.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
