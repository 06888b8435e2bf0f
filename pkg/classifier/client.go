// Package classifier wraps the external classification service that
// judges whether a crime narrative is consistent with its reported
// category. The pipeline only depends on the Client interface; the
// Anthropic-backed implementation lives here.
package classifier

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Case is one observation submitted for validation.
type Case struct {
	ObservationID string
	Category      string
	Narrative     string
}

// Result is the per-observation verdict. Err is set when the service
// responded but no usable verdict could be extracted; transport-level
// failures surface as errors from ValidateBatch instead.
type Result struct {
	ObservationID string
	Match         bool
	Observed      string
	Justification string
	Err           string
	Raw           string
}

// Client validates a batch of cases as one unit. Implementations must
// return an error on transport failure so the caller can retry the whole
// batch; per-case verdict problems belong in Result.Err.
type Client interface {
	ValidateBatch(ctx context.Context, cases []Case) ([]Result, error)
}

// Options configures the Anthropic-backed client.
type Options struct {
	Model         string
	MaxTokens     int64
	RatePerSecond float64
	MaxConcurrent int
	// Categories maps category codes to labels; it parameterizes the
	// system prompt. The taxonomy is reference data, not owned here.
	Categories map[string]string
}

type anthropicClient struct {
	client  sdk.Client
	opts    Options
	limiter *rate.Limiter
	system  string
}

// New creates a classification client backed by the Anthropic SDK.
func New(apiKey string, opts Options) Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	limit := rate.Limit(opts.RatePerSecond)
	if opts.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	return &anthropicClient{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		system:  buildSystemPrompt(opts.Categories),
	}
}

// ValidateBatch submits every case in the batch, bounded by the
// concurrency limit and the shared rate limiter. The first transport
// failure cancels the remaining calls and fails the batch.
func (c *anthropicClient) ValidateBatch(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, len(cases))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrent)

	var mu sync.Mutex
	for i, cs := range cases {
		g.Go(func() error {
			if err := c.limiter.Wait(gCtx); err != nil {
				return eris.Wrap(err, "classifier: rate limiter")
			}

			msg, err := c.client.Messages.New(gCtx, sdk.MessageNewParams{
				Model:     sdk.Model(c.opts.Model),
				MaxTokens: c.opts.MaxTokens,
				System:    []sdk.TextBlockParam{{Text: c.system}},
				Messages: []sdk.MessageParam{
					sdk.NewUserMessage(sdk.NewTextBlock(buildUserPrompt(cs))),
				},
			})
			if err != nil {
				return eris.Wrapf(err, "classifier: validate case %s", cs.ObservationID)
			}

			res := parseResult(cs, extractText(msg))
			mu.Lock()
			results[i] = res
			mu.Unlock()

			if res.Err != "" {
				zap.L().Warn("classifier: unusable verdict",
					zap.String("observation_id", cs.ObservationID),
					zap.String("error", res.Err),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func extractText(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// IsRetryable reports whether err is a transient service failure: rate
// limiting, 5xx-class responses, or network timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504, 529:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "connection reset")
}
