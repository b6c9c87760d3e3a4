package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/models"
)

func TestAnswerQuestion(t *testing.T) {
	gateway := &stubGateway{responses: map[string]string{
		llm.SchemaCaseAnswer: `{"answer": "The case is in progress and assigned to support.", "sources": ["Case Details"], "confidence": 0.85}`,
	}}
	svc := &QAService{Fetcher: &stubFetcher{caseRecord: openCase()}, Gateway: gateway, Logger: zerolog.Nop()}

	result, err := svc.AnswerQuestion(context.Background(), "00001234", "What is the status?", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CaseID != "00001234" {
		t.Fatalf("unexpected case id %s", result.CaseID)
	}
	if result.Answer == "" || result.Confidence != 0.85 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("expected one source, got %+v", result.Sources)
	}
}

func TestAnswerQuestionInsufficientInformation(t *testing.T) {
	gateway := &stubGateway{responses: map[string]string{
		llm.SchemaCaseAnswer: `{"answer": "", "sources": [], "confidence": 0.7}`,
	}}
	svc := &QAService{Fetcher: &stubFetcher{caseRecord: openCase()}, Gateway: gateway, Logger: zerolog.Nop()}

	result, err := svc.AnswerQuestion(context.Background(), "00001234", "What is the CFO's shoe size?", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0 {
		t.Fatalf("an empty answer must zero the confidence, got %f", result.Confidence)
	}
	if !strings.Contains(result.Answer, "does not contain enough detail") {
		t.Fatalf("expected insufficiency message, got %q", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("insufficiency answer must not cite sources, got %+v", result.Sources)
	}
}

func TestAnswerQuestionSanitized(t *testing.T) {
	gateway := &stubGateway{responses: map[string]string{
		llm.SchemaCaseAnswer: `{"answer": "Contact alice@internal.com for the escalation.", "sources": ["CaseComment"], "confidence": 0.8}`,
	}}
	svc := &QAService{Fetcher: &stubFetcher{caseRecord: openCase()}, Gateway: gateway, Logger: zerolog.Nop()}

	result, err := svc.AnswerQuestion(context.Background(), "00001234", "Who do I contact?", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(result.Answer, "alice@internal.com") {
		t.Fatalf("sanitized answer still contains an email: %s", result.Answer)
	}
}

func TestAnswerQuestionCachesContext(t *testing.T) {
	fetcher := &stubFetcher{caseRecord: openCase()}
	gateway := &stubGateway{responses: map[string]string{
		llm.SchemaCaseAnswer: `{"answer": "In progress.", "sources": ["Case Details"], "confidence": 0.9}`,
	}}
	svc := &QAService{Fetcher: fetcher, Gateway: gateway, Logger: zerolog.Nop()}

	for i := 0; i < 3; i++ {
		if _, err := svc.AnswerQuestion(context.Background(), "00001234", "Status?", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if fetcher.fetchCaseCalls != 1 {
		t.Fatalf("expected one CRM fetch for repeated questions, got %d", fetcher.fetchCaseCalls)
	}
}

func TestAnswerQuestionValidation(t *testing.T) {
	svc := &QAService{Fetcher: &stubFetcher{}, Gateway: &stubGateway{}, Logger: zerolog.Nop()}
	var verr *models.ValidationError
	if _, err := svc.AnswerQuestion(context.Background(), "00001234", "", false); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty question, got %v", err)
	}
	if _, err := svc.AnswerQuestion(context.Background(), "", "Status?", false); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty case id, got %v", err)
	}
}
