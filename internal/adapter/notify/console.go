package notify

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

// highlight paints the bridge's name tag, grounded on mit-dci-lit/lnutil/color.go's
// SprintFunc style. The dispatcher already strips ANSI before any chat
// transport sees the text (spec §4.9); console output is the one place
// colour survives, since it never leaves the local terminal.
var highlight = color.New(color.FgHiCyan).SprintFunc()

// ConsoleTransport implements usecase.NotificationTransport by echoing the
// message to stdout, for local/dev-mode runs where no chat bot token is
// configured (spec §6 DEV_MODE).
type ConsoleTransport struct {
	name string
}

// NewConsoleTransport creates a new ConsoleTransport registered under name
// (the "chat target" the dispatcher routes to).
func NewConsoleTransport(name string) *ConsoleTransport {
	if name == "" {
		name = "console"
	}
	return &ConsoleTransport{name: name}
}

// Name returns the transport's registered chat target name.
func (t *ConsoleTransport) Name() string {
	return t.name
}

// Send writes the message to stdout and never fails or asks for a retry.
func (t *ConsoleTransport) Send(ctx context.Context, chatTarget, text string) (time.Duration, error) {
	fmt.Fprintf(os.Stdout, "%s %s\n", highlight("["+t.name+"]"), text)
	return 0, nil
}
