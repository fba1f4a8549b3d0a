package e2e

import (
	"chat-client/domain"
	"chat-client/services"
	"chat-client/transport/websocket"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type BaseChatSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("CHAT_SERVER_URL is not set")
	}
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// WithService provides a chat service connected to the configured server,
// then prints its activity log and disconnects.
func (s *BaseChatSuite) WithService(name string, fn func(svc *services.ChatService)) {
	s.Step(name)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	svc := services.NewChatService(log, websocket.NewDialer(log, s.Config.ServerURL), services.Config{
		DefaultRoom:      s.Config.Room,
		HandshakeTimeout: 10 * time.Second,
		AckTimeout:       5 * time.Second,
	})
	defer func() {
		svc.Disconnect()
		s.T().Log(strings.Join(Texts(svc), "\n"))
	}()

	s.Require().NoError(svc.Connect(s.Config.Token, s.Config.Identity))
	s.Require().Eventually(func() bool { return svc.Session().IsConnected() },
		10*time.Second, 50*time.Millisecond, "session never connected: %v", Texts(svc))
	fn(svc)
}

func Texts(svc *services.ChatService) []string {
	return lo.Map(svc.Log(), func(e domain.LogEntry, _ int) string { return e.Text })
}
