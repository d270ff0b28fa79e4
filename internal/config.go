package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	TimelineSize         int           `env:"TIMELINE_SIZE,default=100"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=5s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`

	WriteWait      time.Duration `env:"WS_WRITE_WAIT,default=10s"`
	PongWait       time.Duration `env:"WS_PONG_WAIT,default=60s"`
	PingInterval   time.Duration `env:"WS_PING_INTERVAL,default=54s"`
	MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE,default=4096"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
