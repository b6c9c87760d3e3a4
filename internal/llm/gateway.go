package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/customer360-copilot/backend/internal/models"
)

// Gateway wraps a Completer with bounded retry, backoff and structured-output
// decoding. It is safe for concurrent use; all mutable state is atomic
// counters.
type Gateway struct {
	completer   Completer
	maxRetries  int
	backoffBase time.Duration

	calls       atomic.Int64
	retries     atomic.Int64
	failures    atomic.Int64
	promptChars atomic.Int64
	complChars  atomic.Int64
	latencyMS   atomic.Int64
	corrections atomic.Int64
}

func NewGateway(completer Completer, maxRetries int) *Gateway {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Gateway{
		completer:   completer,
		maxRetries:  maxRetries,
		backoffBase: 500 * time.Millisecond,
	}
}

// Complete submits the prompt, retrying transient failures with exponential
// backoff up to the retry bound. Malformed-request errors are surfaced
// immediately.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	g.promptChars.Add(int64(len(req.Prompt)))

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.retries.Add(1)
			backoff := g.backoffBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				g.failures.Add(1)
				return "", &models.GenerationError{Stage: req.SchemaHint, Retryable: true, Err: ctx.Err()}
			}
		}

		g.calls.Add(1)
		start := time.Now()
		out, err := g.completer.Complete(ctx, req)
		g.latencyMS.Add(time.Since(start).Milliseconds())

		if err == nil {
			g.complChars.Add(int64(len(out)))
			return out, nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			g.failures.Add(1)
			return "", &models.GenerationError{Stage: req.SchemaHint, Retryable: false, Err: err}
		}
		lastErr = err
	}

	g.failures.Add(1)
	return "", &models.GenerationError{Stage: req.SchemaHint, Retryable: true, Err: lastErr}
}

// CompleteJSON runs Complete and decodes the output into out. An undecodable
// response earns one corrective follow-up prompt before the request fails.
func (g *Gateway) CompleteJSON(ctx context.Context, req Request, out any) error {
	text, err := g.Complete(ctx, req)
	if err != nil {
		return err
	}

	decodeErr := json.Unmarshal([]byte(ExtractJSON(text)), out)
	if decodeErr == nil {
		return nil
	}

	g.corrections.Add(1)
	corrective := req
	corrective.Prompt = fmt.Sprintf(
		"%s\n\nYour previous response could not be parsed (%v). Respond again with ONLY a valid JSON object for the %s schema, no prose and no markdown fences.\n\nPrevious response:\n%s",
		req.Prompt, decodeErr, req.SchemaHint, text)

	text, err = g.Complete(ctx, corrective)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), out); err != nil {
		g.failures.Add(1)
		return &models.GenerationError{Stage: req.SchemaHint, Retryable: true, Err: fmt.Errorf("undecodable output: %w", err)}
	}
	return nil
}

func (g *Gateway) Metrics() Metrics {
	return Metrics{
		Calls:            g.calls.Load(),
		Retries:          g.retries.Load(),
		Failures:         g.failures.Load(),
		PromptChars:      g.promptChars.Load(),
		CompletionChars:  g.complChars.Load(),
		TotalLatencyMS:   g.latencyMS.Load(),
		DecodeCorrection: g.corrections.Load(),
	}
}

// ExtractJSON strips markdown fences and leading prose around the first
// top-level JSON object in a model response.
func ExtractJSON(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}
