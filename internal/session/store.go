// Package session owns per-channel conversation state. Each channel has at
// most one Session; it is rebuilt from a fresh directive when it goes idle
// past the TTL, when a reset is requested in-band, and it is trimmed to a
// bounded window when its history overflows.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zulandar/parley/internal/metrics"
)

// Default store parameters.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultOverflow = 20
	DefaultMemory   = 10
)

// ResetMarker in a message forces the channel's Session to be rebuilt.
const ResetMarker = "!reset!"

// Speakers recorded in a Session's history.
const (
	SpeakerSystem    = "system"
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

const (
	refreshReasonNew     = "new"
	refreshReasonExpired = "expired"
	refreshReasonReset   = "reset"
	trimReasonOverflow   = "overflow"
	trimReasonForced     = "forced"
)

// ErrNoSession is returned when an operation targets a channel with no Session.
var ErrNoSession = errors.New("session: no session for channel")

// Turn is a single entry in a Session's history.
type Turn struct {
	Speaker string
	Text    string
}

// Session is a snapshot of one channel's conversation state. History[0] is
// always the directive the Session was created with.
type Session struct {
	History    []Turn
	LastActive time.Time
}

// Directive returns the system turn the Session was created from.
func (s Session) Directive() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[0].Text
}

// Info summarizes a Session for status reporting.
type Info struct {
	ChannelID  string
	Turns      int
	LastActive time.Time
	Idle       time.Duration
}

// DirectiveFunc builds the directive for a new Session from the message that
// triggered it.
type DirectiveFunc func(text string) string

// Store holds one Session per channel. All map access goes through mu; the
// per-channel guards serialize writers working on the same channel. Sessions
// idle past the retention are evicted, and a guard lives only while some
// caller holds or waits on it.
type Store struct {
	directive DirectiveFunc
	clock     clockwork.Clock
	ttl       time.Duration
	retain    time.Duration
	overflow  int
	memory    int

	mu        sync.RWMutex
	sessions  map[string]*Session
	lastSweep time.Time

	guardMu sync.Mutex
	guards  map[string]*guard
}

type guard struct {
	mu   sync.Mutex
	refs int
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	Directive DirectiveFunc   // required
	Clock     clockwork.Clock // defaults to the real clock
	TTL       time.Duration   // defaults to DefaultTTL
	Retain    time.Duration   // idle time before a Session is evicted; never below TTL
	Overflow  int             // history length that triggers a trim; defaults to DefaultOverflow
	Memory    int             // turns kept after the directive on trim; defaults to DefaultMemory
}

// NewStore creates a Store.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.Directive == nil {
		return nil, fmt.Errorf("session: directive func is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	overflow := opts.Overflow
	if overflow <= 0 {
		overflow = DefaultOverflow
	}
	retain := opts.Retain
	if retain < ttl {
		retain = ttl
	}
	memory := opts.Memory
	if memory <= 0 {
		memory = DefaultMemory
	}
	if memory >= overflow {
		return nil, fmt.Errorf("session: memory (%d) must be smaller than overflow (%d)", memory, overflow)
	}
	return &Store{
		directive: opts.Directive,
		clock:     clock,
		ttl:       ttl,
		retain:    retain,
		overflow:  overflow,
		memory:    memory,
		sessions:  make(map[string]*Session),
		lastSweep: clock.Now(),
		guards:    make(map[string]*guard),
	}, nil
}

// Guard locks the channel for a read-modify-write cycle and returns the
// release func. Callers that hold a channel across GetOrRefresh, the
// completion call and Commit must take the guard first.
func (s *Store) Guard(channelID string) (release func()) {
	s.guardMu.Lock()
	g, ok := s.guards[channelID]
	if !ok {
		g = &guard{}
		s.guards[channelID] = g
	}
	g.refs++
	s.guardMu.Unlock()

	g.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Unlock()
			s.guardMu.Lock()
			g.refs--
			if g.refs == 0 {
				delete(s.guards, channelID)
			}
			s.guardMu.Unlock()
		})
	}
}

// GetOrRefresh returns the channel's Session, creating it if missing and
// rebuilding it if it has expired or text carries the reset marker. An
// overflowing history is trimmed before the snapshot is taken. At most once
// per retention period it also evicts other channels idle past it.
func (s *Store) GetOrRefresh(channelID, text string) Session {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.retain {
		s.sweep(channelID, now)
	}

	sess, ok := s.sessions[channelID]
	switch {
	case !ok:
		sess = s.newSession(text, now)
		s.sessions[channelID] = sess
		metrics.SessionRefreshes.WithLabelValues(refreshReasonNew).Inc()
	case now.Sub(sess.LastActive) > s.ttl:
		sess = s.newSession(text, now)
		s.sessions[channelID] = sess
		metrics.SessionRefreshes.WithLabelValues(refreshReasonExpired).Inc()
	case strings.Contains(text, ResetMarker):
		sess = s.newSession(text, now)
		s.sessions[channelID] = sess
		metrics.SessionRefreshes.WithLabelValues(refreshReasonReset).Inc()
	}

	if len(sess.History) > s.overflow {
		sess.History = trim(sess.History, s.memory)
		metrics.SessionTrims.WithLabelValues(trimReasonOverflow).Inc()
	}
	metrics.SessionsActive.Set(float64(len(s.sessions)))

	return sess.snapshot()
}

// Commit appends the user turn and the assistant reply to the channel's
// history and marks it active.
func (s *Store) Commit(channelID string, user Turn, reply string) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[channelID]
	if !ok {
		return fmt.Errorf("%w %s", ErrNoSession, channelID)
	}
	sess.History = append(sess.History, user, Turn{Speaker: SpeakerAssistant, Text: reply})
	sess.LastActive = now
	return nil
}

// ForceTrim cuts the channel's history down to the directive plus the most
// recent memory turns regardless of its length. It reports whether a Session
// existed.
func (s *Store) ForceTrim(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[channelID]
	if !ok {
		return false
	}
	sess.History = trim(sess.History, s.memory)
	metrics.SessionTrims.WithLabelValues(trimReasonForced).Inc()
	return true
}

// PeekLastActive returns when the channel's Session was last active.
func (s *Store) PeekLastActive(channelID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[channelID]
	if !ok {
		return time.Time{}, false
	}
	return sess.LastActive, true
}

// Get returns a snapshot of the channel's Session without refreshing it.
func (s *Store) Get(channelID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[channelID]
	if !ok {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// Len returns the number of live Sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot lists every Session, most recently active first.
func (s *Store) Snapshot() []Info {
	now := s.clock.Now()

	s.mu.RLock()
	infos := make([]Info, 0, len(s.sessions))
	for id, sess := range s.sessions {
		infos = append(infos, Info{
			ChannelID:  id,
			Turns:      len(sess.History),
			LastActive: sess.LastActive,
			Idle:       now.Sub(sess.LastActive),
		})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].LastActive.Equal(infos[j].LastActive) {
			return infos[i].ChannelID < infos[j].ChannelID
		}
		return infos[i].LastActive.After(infos[j].LastActive)
	})
	return infos
}

// sweep drops Sessions idle longer than the retention, except keep's.
// Callers must hold mu.
func (s *Store) sweep(keep string, now time.Time) {
	for id, sess := range s.sessions {
		if id != keep && now.Sub(sess.LastActive) > s.retain {
			delete(s.sessions, id)
			metrics.SessionEvictions.Inc()
		}
	}
	s.lastSweep = now
}

func (s *Store) newSession(text string, now time.Time) *Session {
	return &Session{
		History:    []Turn{{Speaker: SpeakerSystem, Text: s.directive(text)}},
		LastActive: now,
	}
}

func (sess *Session) snapshot() Session {
	history := make([]Turn, len(sess.History))
	copy(history, sess.History)
	return Session{History: history, LastActive: sess.LastActive}
}

// trim keeps history[0] followed by the last memory turns, in order.
func trim(history []Turn, memory int) []Turn {
	if len(history) <= memory+1 {
		return history
	}
	out := make([]Turn, 0, memory+1)
	out = append(out, history[0])
	out = append(out, history[len(history)-memory:]...)
	return out
}
