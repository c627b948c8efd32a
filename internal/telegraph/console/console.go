// Package console implements the telegraph Adapter over a local terminal so
// parley can be run without a chat platform. Every line read from the input
// is one inbound message on a single channel.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/zulandar/parley/internal/telegraph"
	"golang.org/x/term"
)

// ChannelID is the single channel a console session speaks on.
const ChannelID = "console"

// botUserID marks the bot's own lines.
const botUserID = "console-bot"

// Adapter implements telegraph.Adapter on an input/output stream pair. When
// the input is a terminal it is switched to raw mode and driven through
// term.Terminal, which keeps the prompt intact while replies are printed.
type Adapter struct {
	in       io.Reader
	out      io.Writer
	fd       int // terminal fd, -1 when not interactive
	userName string
	botName  string
	prompt   string

	mu        sync.Mutex
	connected bool
	closed    bool
	terminal  *term.Terminal
	oldState  *term.State
	inbound   chan telegraph.InboundMessage
	closeOnce sync.Once
}

// AdapterOpts holds parameters for creating a console Adapter.
type AdapterOpts struct {
	In       io.Reader // defaults to os.Stdin
	Out      io.Writer // defaults to os.Stdout
	UserName string    // author name for typed lines; defaults to $USER
	BotName  string    // prefix for printed replies
}

// New creates a console Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	user := opts.UserName
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		user = "you"
	}
	if opts.BotName == "" {
		return nil, fmt.Errorf("console: bot name is required")
	}

	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}

	return &Adapter{
		in:       in,
		out:      out,
		fd:       fd,
		userName: user,
		botName:  opts.BotName,
		prompt:   user + "> ",
		inbound:  make(chan telegraph.InboundMessage, 100),
	}, nil
}

// Interactive reports whether the adapter is attached to a terminal.
func (a *Adapter) Interactive() bool { return a.fd >= 0 }

// Connect puts an interactive terminal into raw mode.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("console: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.fd >= 0 {
		state, err := term.MakeRaw(a.fd)
		if err != nil {
			return fmt.Errorf("console: raw mode: %w", err)
		}
		a.oldState = state
		a.terminal = term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{a.in, a.out}, a.prompt)
	}

	a.connected = true
	return nil
}

// Listen starts reading lines. The inbound channel is closed at end of input.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("console: not connected")
	}

	if a.terminal != nil {
		go a.readTerminal(ctx)
	} else {
		go a.readLines(ctx)
	}
	return a.inbound, nil
}

// Send prints the reply prefixed with the bot's name.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("console: not connected")
	}

	line := fmt.Sprintf("%s: %s\n", a.botName, msg.Text)
	var w io.Writer = a.out
	if a.terminal != nil {
		w = a.terminal
	}
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	return nil
}

// Close restores the terminal and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	a.closeInbound()
	if a.oldState != nil {
		if err := term.Restore(a.fd, a.oldState); err != nil {
			return fmt.Errorf("console: restore terminal: %w", err)
		}
	}
	return nil
}

// BotUserID implements telegraph.BotUserIDer.
func (a *Adapter) BotUserID() string { return botUserID }

// BotName implements telegraph.BotNamer.
func (a *Adapter) BotName() string { return a.botName }

func (a *Adapter) readTerminal(ctx context.Context) {
	for {
		line, err := a.terminal.ReadLine()
		if err != nil {
			if err != io.EOF {
				log.Printf("console: read: %v", err)
			}
			a.finish()
			return
		}
		if !a.deliver(ctx, line) {
			return
		}
	}
}

func (a *Adapter) readLines(ctx context.Context) {
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		if !a.deliver(ctx, scanner.Text()) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("console: read: %v", err)
	}
	a.finish()
}

// deliver hands one line to the inbound channel. It reports false once the
// adapter is closed or ctx is done.
func (a *Adapter) deliver(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	msg := telegraph.InboundMessage{
		Platform:  "console",
		ChannelID: ChannelID,
		UserID:    a.userName,
		UserName:  a.userName,
		Text:      line,
		Timestamp: time.Now(),
	}
	select {
	case a.inbound <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish closes the inbound channel at end of input so the daemon stops.
func (a *Adapter) finish() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeInbound()
}

func (a *Adapter) closeInbound() {
	a.closeOnce.Do(func() { close(a.inbound) })
}
