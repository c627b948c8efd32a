package dispatch

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zulandar/parley/internal/telegraph"
)

// Default filter parameters.
const (
	DefaultWindow      = 30 * time.Second
	DefaultAmbientOdds = 20
)

// Reason says why the filter accepted a message.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMention      Reason = "mention"
	ReasonContinuation Reason = "continuation"
	ReasonAmbient      Reason = "ambient"
)

// Roller decides whether an unprompted message gets an ambient reply.
type Roller interface {
	Roll() bool
}

// RollerFunc adapts a function to Roller.
type RollerFunc func() bool

// Roll calls f.
func (f RollerFunc) Roll() bool { return f() }

// OddsRoller fires with probability 1/n. It is safe for concurrent use.
type OddsRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
	n   int
}

// NewOddsRoller creates a roller that fires one time in n, drawing from a
// PCG source seeded with seed. n <= 0 never fires.
func NewOddsRoller(n int, seed uint64) *OddsRoller {
	return &OddsRoller{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		n:   n,
	}
}

// Roll reports whether this draw fires.
func (r *OddsRoller) Roll() bool {
	if r.n <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(r.n) == 0
}

// ActivityPeeker reports when a channel last saw a reply. *session.Store
// implements it.
type ActivityPeeker interface {
	PeekLastActive(channelID string) (time.Time, bool)
}

// Filter decides which inbound messages get a reply. It only reads state.
type Filter struct {
	sessions  ActivityPeeker
	clock     clockwork.Clock
	window    time.Duration
	roller    Roller
	botUserID func() string
}

// FilterOpts holds parameters for creating a Filter.
type FilterOpts struct {
	Sessions  ActivityPeeker  // required
	Clock     clockwork.Clock // defaults to the real clock
	Window    time.Duration   // continuation window; defaults to DefaultWindow
	Roller    Roller          // defaults to a 1-in-DefaultAmbientOdds time-seeded roller
	BotUserID func() string   // optional; the bot's platform user ID
}

// NewFilter creates a Filter.
func NewFilter(opts FilterOpts) (*Filter, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("dispatch: sessions are required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	roller := opts.Roller
	if roller == nil {
		roller = NewOddsRoller(DefaultAmbientOdds, uint64(clock.Now().UnixNano()))
	}
	botUserID := opts.BotUserID
	if botUserID == nil {
		botUserID = func() string { return "" }
	}
	return &Filter{
		sessions:  opts.Sessions,
		clock:     clock,
		window:    window,
		roller:    roller,
		botUserID: botUserID,
	}, nil
}

// ShouldEnqueue reports whether msg should be answered.
func (f *Filter) ShouldEnqueue(msg telegraph.InboundMessage, botName string) bool {
	return f.Evaluate(msg, botName) != ReasonNone
}

// Evaluate applies the checks in order: the bot's own messages are never
// answered; a mention of botName (any case) is; so is any message in a
// channel whose session was active within the window; otherwise the
// ambient roller decides.
func (f *Filter) Evaluate(msg telegraph.InboundMessage, botName string) Reason {
	if msg.IsSelf {
		return ReasonNone
	}
	if id := f.botUserID(); id != "" && msg.UserID == id {
		return ReasonNone
	}
	if botName != "" && strings.Contains(strings.ToLower(msg.Text), strings.ToLower(botName)) {
		return ReasonMention
	}
	if last, ok := f.sessions.PeekLastActive(msg.ChannelID); ok && f.clock.Since(last) <= f.window {
		return ReasonContinuation
	}
	if f.roller.Roll() {
		return ReasonAmbient
	}
	return ReasonNone
}
