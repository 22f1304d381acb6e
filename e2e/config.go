// Package e2e exercises a running relay over its public surface. The tests
// are skipped unless RELAY_E2E is set, so the regular unit run never needs a
// live server.
package e2e

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config locates the relay under test.
type Config struct {
	E2E     bool   `envconfig:"RELAY_E2E" default:"false"`
	BaseURL string `envconfig:"RELAY_ADDR" default:"http://127.0.0.1:8000"`
}

func LoadConfig() (Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	return config, err
}

// WebSocketURL derives the websocket endpoint from the HTTP base address.
func (c Config) WebSocketURL(token string) string {
	base := strings.Replace(c.BaseURL, "http", "ws", 1)
	return base + "/ws?token=" + token
}
