package llm

import (
	"context"
	"fmt"
	"time"
)

// Schema hints name the structured shape a prompt expects back. They key
// mock responses and the corrective re-prompt, and label metrics.
const (
	SchemaCaseAnalysis  = "case_analysis"
	SchemaBatchSummary  = "batch_summary"
	SchemaFinalInsights = "final_insights"
	SchemaCaseAnswer    = "case_answer"
)

type Request struct {
	Prompt     string
	SchemaHint string
	MaxTokens  int
	Timeout    time.Duration
}

// Completer is the raw text-completion collaborator. Adapters classify their
// transport failures: transient ones (timeout, rate limit, 5xx) are wrapped
// in TransientError so the gateway knows what it may retry.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient llm error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Metrics is a point-in-time snapshot of gateway counters.
type Metrics struct {
	Calls            int64 `json:"calls"`
	Retries          int64 `json:"retries"`
	Failures         int64 `json:"failures"`
	PromptChars      int64 `json:"prompt_chars"`
	CompletionChars  int64 `json:"completion_chars"`
	TotalLatencyMS   int64 `json:"total_latency_ms"`
	DecodeCorrection int64 `json:"decode_corrections"`
}
