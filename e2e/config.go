package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_SERVER_URL points to a running chat server; the suite is skipped without it
	ServerURL string `envconfig:"CHAT_SERVER_URL"`
	Token     string `envconfig:"CHAT_TOKEN" default:"abc"`
	Identity  string `envconfig:"CHAT_IDENTITY" default:"test@tester.com"`
	Room      string `envconfig:"CHAT_DEFAULT_ROOM" default:"chat"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
