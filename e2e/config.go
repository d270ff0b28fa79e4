// Package e2e exercises the relay through a real WebSocket round trip:
// an in-process server, real clients, real frames.
package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SINK_TIMEOUT bounds each sink delivery during the scenario
	SinkTimeout time.Duration `envconfig:"E2E_SINK_TIMEOUT" default:"1s"`
	// E2E_READ_TIMEOUT bounds each frame wait before the scenario fails
	ReadTimeout time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"3s"`
	// E2E_BUFFER_SIZE sizes the command queue and per-connection send queues
	BufferSize int `envconfig:"E2E_BUFFER_SIZE" default:"64"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
