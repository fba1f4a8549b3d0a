package main

import (
	"bufio"
	"chat-client/domain"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// chatService is the part of services.ChatService the console drives.
type chatService interface {
	Connect(token, identity string) error
	Disconnect()
	Join(room string) (*domain.Request, error)
	Leave(room string) (*domain.Request, error)
	Send(room, body string) (string, error)
	ClearLog()
	Log() []domain.LogEntry
	Rooms() []domain.Room
	Session() domain.Session
	Subscribe(fn func(domain.LogEntry))
}

// masker hides censored words in what is displayed.
type masker interface {
	Censor(text string) (string, []string)
}

const helpText = `Commands:
  /connect [token] [identity]  open a session
  /disconnect                  close the session
  /join [room]                 join a room (default room when omitted)
  /leave [room]                leave a room
  /clear                       clear the activity log
  /rooms                       show room states
  /log                         show the activity log
  /quit                        exit
Any other text is sent to the default room.`

// Console is a line-based UI. It only calls service operations and renders
// the activity log; every rule is enforced by the service.
type Console struct {
	mu       sync.Mutex
	svc      chatService
	in       io.Reader
	out      io.Writer
	masker   masker
	colours  bool
	token    string
	identity string
}

func NewConsole(svc chatService, in io.Reader, out io.Writer, token, identity string, colours bool) *Console {
	return &Console{svc: svc, in: in, out: out, token: token, identity: identity, colours: colours}
}

// WithMasker sets the moderator used on displayed entries.
func (c *Console) WithMasker(m masker) *Console {
	c.masker = m
	return c
}

// Run renders log entries as they are appended and executes input lines
// until /quit, end of input or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	c.svc.Subscribe(c.render)
	c.println(helpText)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if quit := c.Execute(line); quit {
				return nil
			}
		}
	}
}

// Execute runs one input line and reports whether the console must stop.
// Failures are not printed here: they reach the activity log.
func (c *Console) Execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		_, _ = c.svc.Send("", line)
		return false
	}

	fields := strings.Fields(line)
	arg := func(i int, fallback string) string {
		if len(fields) > i {
			return fields[i]
		}
		return fallback
	}

	switch fields[0] {
	case "/connect":
		_ = c.svc.Connect(arg(1, c.token), arg(2, c.identity))
	case "/disconnect":
		c.svc.Disconnect()
	case "/join":
		_, _ = c.svc.Join(arg(1, ""))
	case "/leave":
		_, _ = c.svc.Leave(arg(1, ""))
	case "/clear":
		c.svc.ClearLog()
	case "/rooms":
		c.printRooms()
	case "/log":
		c.printLog()
	case "/quit":
		c.svc.Disconnect()
		return true
	default:
		c.println(helpText)
	}
	return false
}

func (c *Console) render(entry domain.LogEntry) {
	text := c.mask(entry.Text)
	if c.colours {
		text = styleOf(entry.Text).Render(text)
	}
	c.println(fmt.Sprintf("[%s] %s", entry.At.Format("15:04:05"), text))
}

func (c *Console) printRooms() {
	session := c.svc.Session()
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Session: %s %s\n", session.State, session.ConnectionID)
	table := newTable(c.out, "Room", "State")
	for _, room := range c.svc.Rooms() {
		table.Append([]string{room.Name, string(room.State)})
	}
	table.Render()
}

func (c *Console) printLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	table := newTable(c.out, "#", "Time", "Entry")
	for _, entry := range c.svc.Log() {
		table.Append([]string{strconv.Itoa(entry.Sequence), entry.At.Format("15:04:05"), c.mask(entry.Text)})
	}
	table.Render()
}

func (c *Console) mask(text string) string {
	if c.masker == nil {
		return text
	}
	masked, _ := c.masker.Censor(text)
	return masked
}

func (c *Console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func styleOf(text string) color.Style {
	switch {
	case strings.HasPrefix(text, "Error:"):
		return color.New(color.FgRed)
	case strings.HasPrefix(text, "Sent:"):
		return color.New(color.FgCyan)
	case strings.HasPrefix(text, "Response:"):
		return color.New(color.FgGray)
	case strings.HasPrefix(text, "Connected"), strings.HasPrefix(text, "Disconnected"):
		return color.New(color.FgGreen, color.OpBold)
	default:
		return color.New(color.FgWhite)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
