package completion

import (
	"context"
	"fmt"
	"sync"

	"github.com/zulandar/parley/internal/session"
)

// Call records a single Complete invocation on a Scripted client.
type Call struct {
	History []session.Turn
	Text    string
}

// Response is one scripted outcome: Reply on success, Err on failure.
type Response struct {
	Reply string
	Err   error
}

// Scripted implements Client for testing. It replays Responses in order and
// records every call. Once the script runs out it echoes the input.
type Scripted struct {
	mu        sync.Mutex
	responses []Response
	calls     []Call
}

// NewScripted creates a Scripted client that returns responses in order.
func NewScripted(responses ...Response) *Scripted {
	return &Scripted{responses: responses}
}

// Complete records the call and returns the next scripted response.
func (s *Scripted) Complete(ctx context.Context, history []session.Turn, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := make([]session.Turn, len(history))
	copy(h, history)
	s.calls = append(s.calls, Call{History: h, Text: text})

	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}
	if len(s.responses) == 0 {
		return fmt.Sprintf("echo: %s", text), nil
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r.Reply, r.Err
}

// Calls returns a copy of every recorded call.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of Complete invocations.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
