package main

import (
	"chat-client/domain"
	"chat-client/domain/event"
	"chat-client/internal"
	"chat-client/moderation"
	"chat-client/services"
	"chat-client/transport/websocket"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the console to the chat service and blocks until the user quits
// or the process is interrupted. Deferred cleanup runs before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Chat service over the WebSocket transport
	svc := services.NewChatService(log, websocket.NewDialer(log, config.ServerURL), services.Config{
		DefaultRoom:      config.DefaultRoom,
		HandshakeTimeout: config.HandshakeTimeout,
		AckTimeout:       config.AckTimeout,
	})
	svc.OnDelivered(func(msg domain.Message, ack domain.Ack) {
		log.Debug("Delivery acknowledged", "room", msg.Room, "ok", ack.Succeeded())
	})
	notices := event.HandlerFunc(func(evt event.Inbound) error {
		if n, ok := evt.(event.RoomNotice); ok {
			log.Info("Room membership changed", "channel", n.Kind, "room", n.Room, "user", n.User)
		}
		return nil
	})
	for _, channel := range []domain.Channel{domain.ChannelJoinRoom, domain.ChannelLeaveRoom} {
		if err := svc.RegisterHandler(channel, notices); err != nil {
			return err
		}
	}

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := NewConsole(svc, os.Stdin, os.Stdout, config.Token, config.Identity, config.Colours)

	// 4. Optional display moderation
	stats := func() map[string]any { return map[string]any{"Default room": config.DefaultRoom} }
	if words := internal.SplitList(config.CensoredWords); len(words) > 0 {
		char, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		moderator, err := moderation.NewModerator(words, char, log)
		if err != nil {
			return fmt.Errorf("moderator: %w", err)
		}
		console.WithMasker(moderator)

		hits := moderation.NewHitCounter(moderator, log)
		for _, channel := range []domain.Channel{domain.ChannelMessages, domain.ChannelGroupMessage} {
			if err := svc.RegisterHandler(channel, hits); err != nil {
				return err
			}
		}
		stats = func() map[string]any {
			return map[string]any{
				"Default room":      config.DefaultRoom,
				"Censored messages": hits.Total(),
				"Censored words":    hits.Hits(),
			}
		}
	}

	// 5. Optional inspect page
	if config.InspectPort > 0 {
		internal.StartDebugServer(ctx, log, config.InspectPort, "/inspect", svc, stats)
	}

	// 6. Console loop
	defer svc.Disconnect()
	if config.Token != "" {
		if err := svc.Connect(config.Token, config.Identity); err != nil {
			log.Warn("Initial connection refused", "error", err)
		}
	}
	return console.Run(ctx)
}
