package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zulandar/parley/internal/session"
)

// DefaultModel is used when OpenAIOpts.Model is empty.
const DefaultModel = openai.GPT3Dot5Turbo

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 90 * time.Second

const codeContextLengthExceeded = "context_length_exceeded"

// chatCompleter is the slice of the go-openai client the adapter uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI is a Client backed by an OpenAI-compatible chat completion API.
type OpenAI struct {
	api     chatCompleter
	model   string
	timeout time.Duration
}

// OpenAIOpts holds parameters for creating an OpenAI client.
type OpenAIOpts struct {
	APIKey  string        // required unless BaseURL is set
	BaseURL string        // optional; points at an OpenAI-compatible server
	Model   string        // defaults to DefaultModel
	Timeout time.Duration // defaults to DefaultTimeout
}

// NewOpenAI creates an OpenAI client.
func NewOpenAI(opts OpenAIOpts) (*OpenAI, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, fmt.Errorf("completion: api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return newOpenAIWithAPI(openai.NewClientWithConfig(cfg), opts), nil
}

func newOpenAIWithAPI(api chatCompleter, opts OpenAIOpts) *OpenAI {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAI{api: api, model: model, timeout: timeout}
}

// Complete sends the history plus the new user turn and returns the first
// choice's content.
func (c *OpenAI) Complete(ctx context.Context, history []session.Turn, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toMessages(history, text),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindBackend, Err: errors.New("response has no choices")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toMessages(history []session.Turn, text string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: roleFor(t.Speaker), Content: t.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
}

func roleFor(speaker string) string {
	switch speaker {
	case session.SpeakerSystem:
		return openai.ChatMessageRoleSystem
	case session.SpeakerAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// classify maps a go-openai error onto a Kind.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Err: err}
		case apiErr.HTTPStatusCode == http.StatusRequestEntityTooLarge:
			return &Error{Kind: KindInputTooLarge, Err: err}
		case apiErr.HTTPStatusCode == http.StatusBadRequest && apiErrCode(apiErr) == codeContextLengthExceeded:
			return &Error{Kind: KindInputTooLarge, Err: err}
		}
		return &Error{Kind: KindBackend, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Err: err}
		case http.StatusRequestEntityTooLarge:
			return &Error{Kind: KindInputTooLarge, Err: err}
		}
		return &Error{Kind: KindTransport, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Err: err}
	}
	return &Error{Kind: KindBackend, Err: err}
}

func apiErrCode(e *openai.APIError) string {
	if s, ok := e.Code.(string); ok {
		return s
	}
	return ""
}
