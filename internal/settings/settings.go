package settings

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/wsgate/wsgate"
)

// Prefix is prepended to every environment variable read by Load.
const Prefix = "WSGATE"

// SettingsEnv names the dotenv file to load before reading the environment.
const SettingsEnv = Prefix + "_SETTINGS"

var validate = validator.New()

type Settings struct {
	Addr            string        `envconfig:"ADDR" default:":8000" validate:"required"`
	Engine          string        `envconfig:"ENGINE" default:"gin" validate:"oneof=gin echo std"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS"`
	RejectCode      int           `envconfig:"REJECT_CODE" default:"0" validate:"omitempty,min=4000,max=4999"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	WriteWait         time.Duration `envconfig:"WRITE_WAIT" default:"10s" validate:"gt=0"`
	PongWait          time.Duration `envconfig:"PONG_WAIT" default:"60s" validate:"gt=0"`
	PingPeriod        time.Duration `envconfig:"PING_PERIOD" default:"54s" validate:"gt=0,ltfield=PongWait"`
	MaxMessageSize    int64         `envconfig:"MAX_MESSAGE_SIZE" default:"65536" validate:"gt=0"`
	MessageBufferSize int           `envconfig:"MESSAGE_BUFFER_SIZE" default:"256" validate:"gte=0"`
}

// Load reads and validates the settings.
func Load(file string) (*Settings, error) {
	s, err := Read(file)
	if err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Read reads settings from the environment without validating them. If file is
// empty, the file named by WSGATE_SETTINGS is used, then ./.env when it exists.
// Variables already present in the environment win over the file.
func Read(file string) (*Settings, error) {
	if file == "" {
		file = os.Getenv(SettingsEnv)
	}

	if file != "" {
		if err := godotenv.Load(file); err != nil {
			return nil, errors.Wrapf(err, "loading settings file %s", file)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Wrap(err, "loading .env")
		}
	}

	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return nil, errors.Wrap(err, "reading environment")
	}

	return &s, nil
}

func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	return nil
}

// GatewayConfig returns the session tuning part of the settings.
func (s *Settings) GatewayConfig() *wsgate.Config {
	return &wsgate.Config{
		WriteWait:         s.WriteWait,
		PongWait:          s.PongWait,
		PingPeriod:        s.PingPeriod,
		MaxMessageSize:    s.MaxMessageSize,
		MessageBufferSize: s.MessageBufferSize,
	}
}
