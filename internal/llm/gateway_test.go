package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/customer360-copilot/backend/internal/models"
)

type scriptedCompleter struct {
	calls   int
	outputs []string
	errs    []error
}

func (s *scriptedCompleter) Complete(ctx context.Context, req Request) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return "", errors.New("script exhausted")
}

func TestGatewayRetriesTransient(t *testing.T) {
	completer := &scriptedCompleter{
		errs:    []error{&TransientError{Err: errors.New("rate limited")}, nil},
		outputs: []string{"", "ok"},
	}
	g := NewGateway(completer, 3)
	g.backoffBase = time.Millisecond

	out, err := g.Complete(context.Background(), Request{Prompt: "p", SchemaHint: SchemaCaseAnswer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if completer.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", completer.calls)
	}
	m := g.Metrics()
	if m.Retries != 1 || m.Calls != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestGatewayNoRetryOnPermanent(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("malformed request")}}
	g := NewGateway(completer, 3)
	g.backoffBase = time.Millisecond

	_, err := g.Complete(context.Background(), Request{Prompt: "p"})
	var gerr *models.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if gerr.Retryable {
		t.Fatalf("permanent failure must not be marked retryable")
	}
	if completer.calls != 1 {
		t.Fatalf("permanent failure must not be retried, got %d attempts", completer.calls)
	}
}

func TestGatewayExhaustsRetries(t *testing.T) {
	transient := &TransientError{Err: errors.New("upstream 503")}
	completer := &scriptedCompleter{errs: []error{transient, transient, transient}}
	g := NewGateway(completer, 2)
	g.backoffBase = time.Millisecond

	_, err := g.Complete(context.Background(), Request{Prompt: "p"})
	var gerr *models.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !gerr.Retryable {
		t.Fatalf("exhausted retries must be marked retryable")
	}
	if completer.calls != 3 {
		t.Fatalf("expected 3 attempts for 2 retries, got %d", completer.calls)
	}
}

func TestGatewayCorrectiveReprompt(t *testing.T) {
	completer := &scriptedCompleter{outputs: []string{
		"Sure! Here is the JSON you asked for.",
		"```json\n{\"answer\": \"yes\"}\n```",
	}}
	g := NewGateway(completer, 0)
	g.backoffBase = time.Millisecond

	var out struct {
		Answer string `json:"answer"`
	}
	if err := g.CompleteJSON(context.Background(), Request{Prompt: "p", SchemaHint: SchemaCaseAnswer}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Answer != "yes" {
		t.Fatalf("unexpected decode %+v", out)
	}
	if completer.calls != 2 {
		t.Fatalf("expected one corrective follow-up, got %d calls", completer.calls)
	}
	if g.Metrics().DecodeCorrection != 1 {
		t.Fatalf("expected one decode correction, got %d", g.Metrics().DecodeCorrection)
	}
}

func TestGatewayUndecodableAfterCorrection(t *testing.T) {
	completer := &scriptedCompleter{outputs: []string{"not json", "still not json"}}
	g := NewGateway(completer, 0)
	g.backoffBase = time.Millisecond

	var out map[string]any
	err := g.CompleteJSON(context.Background(), Request{Prompt: "p", SchemaHint: SchemaCaseAnswer}, &out)
	var gerr *models.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if completer.calls != 2 {
		t.Fatalf("expected exactly one corrective follow-up, got %d calls", completer.calls)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"Here you go:\n```\n{\"a\": 1}\n```\nanything else?", "{\"a\": 1}"},
		{"prose before {\"a\": {\"b\": 2}} prose after", "{\"a\": {\"b\": 2}}"},
	}
	for _, tc := range cases {
		if got := ExtractJSON(tc.in); got != tc.want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
