package telegraph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter implements Adapter, BotUserIDer, BotNamer and Typer for
// testing. It records sent messages and allows simulating inbound messages
// via SimulateInbound.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inputDone bool
	inbound   chan InboundMessage
	sent      []OutboundMessage
	typing    []string
	botUserID string
	botName   string
	limit     int
	sendErr   error
	sentCh    chan OutboundMessage
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound: make(chan InboundMessage, 100),
		sentCh:  make(chan OutboundMessage, 100),
	}
}

// BotUserID returns the configured bot user ID (implements BotUserIDer).
func (m *MockAdapter) BotUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botUserID
}

// SetBotUserID sets the bot user ID for testing.
func (m *MockAdapter) SetBotUserID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = id
}

// BotName returns the configured bot name (implements BotNamer).
func (m *MockAdapter) BotName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botName
}

// SetBotName sets the bot name for testing.
func (m *MockAdapter) SetBotName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botName = name
}

// MessageLimit returns the configured message limit, 0 meaning none.
func (m *MockAdapter) MessageLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}

// SetMessageLimit sets the per-message length cap for testing.
func (m *MockAdapter) SetMessageLimit(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = n
}

// SetSendError makes every subsequent Send fail with err.
func (m *MockAdapter) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound message channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Send records the outbound message.
func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	select {
	case m.sentCh <- msg:
	default:
	}
	return nil
}

// Typing records a typing indicator for the channel (implements Typer).
func (m *MockAdapter) Typing(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing = append(m.typing, channelID)
	return nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	m.closeInbound()
	return nil
}

// EndInput closes the inbound channel while staying connected, like a
// console reaching end of input.
func (m *MockAdapter) EndInput() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeInbound()
}

func (m *MockAdapter) closeInbound() {
	if m.inputDone {
		return
	}
	m.inputDone = true
	close(m.inbound)
}

// --- Test helpers ---

// SimulateInbound sends a message into the inbound channel as if it came
// from the chat platform. Safe to call from any goroutine.
func (m *MockAdapter) SimulateInbound(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Platform == "" {
		msg.Platform = "mock"
	}
	m.inbound <- msg
}

// WaitSent blocks until a message is sent or the timeout expires.
func (m *MockAdapter) WaitSent(timeout time.Duration) (OutboundMessage, bool) {
	select {
	case msg := <-m.sentCh:
		return msg, true
	case <-time.After(timeout):
		return OutboundMessage{}, false
	}
}

// LastSent returns the most recently sent outbound message.
// Returns zero value and false if no messages have been sent.
func (m *MockAdapter) LastSent() (OutboundMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return OutboundMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of outbound messages sent.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent outbound messages.
func (m *MockAdapter) AllSent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// TypingCount returns how many typing indicators were requested.
func (m *MockAdapter) TypingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.typing)
}
