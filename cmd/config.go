package main

import "time"

type Config struct {
	ServerURL        string        `env:"CHAT_SERVER_URL,default=ws://localhost:3100/chat"`
	Token            string        `env:"CHAT_TOKEN"`
	Identity         string        `env:"CHAT_IDENTITY,default=test@tester.com"`
	DefaultRoom      string        `env:"CHAT_DEFAULT_ROOM,default=chat"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,default=10s"`
	AckTimeout       time.Duration `env:"ACK_TIMEOUT,default=5s"`
	LogLevel         string        `env:"LOG_LEVEL,default=WARN"`
	InspectPort      int           `env:"INSPECT_PORT,default=0"`
	CensoredWords    string        `env:"CENSORED_WORDS"`
	CharReplacement  string        `env:"CHARACTER_REPLACEMENT,default=*"`
	Colours          bool          `env:"CHAT_COLOURS,default=true"`
}
