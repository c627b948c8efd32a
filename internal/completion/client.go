// Package completion talks to the chat-completion backend that produces
// parley's replies.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/parley/internal/session"
)

// Kind classifies a completion failure.
type Kind int

const (
	KindBackend Kind = iota
	KindRateLimited
	KindInputTooLarge
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindInputTooLarge:
		return "input_too_large"
	case KindTransport:
		return "transport"
	default:
		return "backend"
	}
}

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrRateLimited   = errors.New("completion: rate limited")
	ErrInputTooLarge = errors.New("completion: input too large")
	ErrTransport     = errors.New("completion: transport failure")
	ErrBackend       = errors.New("completion: backend error")
)

// Error is returned by Client implementations for every failed call.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion: %s", e.Kind)
	}
	return fmt.Sprintf("completion: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRateLimited) and friends match by Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrInputTooLarge:
		return e.Kind == KindInputTooLarge
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrBackend:
		return e.Kind == KindBackend
	}
	return false
}

// KindOf returns the Kind of err, or KindBackend when err is not an *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindBackend
}

// Client produces the next assistant reply for a conversation. history[0] is
// the directive; text is the new user turn, already prefixed with the
// author's name.
type Client interface {
	Complete(ctx context.Context, history []session.Turn, text string) (string, error)
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, history []session.Turn, text string) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, history []session.Turn, text string) (string, error) {
	return f(ctx, history, text)
}
