// Package anthropic wraps the official Anthropic SDK behind the completion
// interface the validation cascade consumes.
package anthropic

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client issues a single text-completion request against a named model.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is a single completion call.
type CompletionRequest struct {
	Model       string
	Prompt      string
	System      string
	MaxTokens   int64
	Temperature *float64

	// Timeout bounds the call; zero means the client default.
	Timeout time.Duration
}

// Completion is the raw model output plus token accounting.
type Completion struct {
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption for cost attribution.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int {
	return int(u.InputTokens + u.OutputTokens)
}

// CompletionError is a transport, auth, or timeout failure from the
// completion provider. The cascade treats it as an escalation trigger rather
// than a terminal failure.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	return "anthropic: completion failed (" + e.Model + "): " + e.Err.Error()
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// IsCompletionError reports whether err chains to a CompletionError.
func IsCompletionError(err error) bool {
	var ce *CompletionError
	return errors.As(err, &ce)
}

const defaultTimeout = 60 * time.Second

// sdkClient implements Client using anthropic-sdk-go.
type sdkClient struct {
	client  sdk.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*sdkClient)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *sdkClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit throttles completion calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *sdkClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// NewClient creates an Anthropic completion client.
func NewClient(apiKey string, opts ...ClientOption) Client {
	c := &sdkClient{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if req.Prompt == "" {
		return nil, eris.New("anthropic: empty prompt")
	}
	if req.MaxTokens <= 0 {
		return nil, eris.Errorf("anthropic: invalid max tokens %d", req.MaxTokens)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "anthropic: rate limit")
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &CompletionError{Model: req.Model, Err: err}
	}

	return fromSDKMessage(msg), nil
}

func fromSDKMessage(msg *sdk.Message) *Completion {
	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}
	return &Completion{
		Text:       text,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
