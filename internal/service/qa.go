package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/customer360-copilot/backend/internal/crm"
	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/models"
	"github.com/customer360-copilot/backend/internal/prompts"
)

const contextCacheTTL = 5 * time.Minute

// QAService answers free-form questions about a single case, grounded only in
// that case's fetched context. The assembled context is memoized per case so
// repeated questions skip the CRM round trips.
type QAService struct {
	Fetcher   crm.Fetcher
	Gateway   CompletionGateway
	Sanitizer Sanitizer
	Logger    zerolog.Logger

	MaxTokens  int
	LLMTimeout time.Duration

	mu    sync.Mutex
	cache map[string]cachedContext
}

type cachedContext struct {
	context string
	caseRef string
	expires time.Time
}

type caseAnswerOutput struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// AnswerQuestion responds to question about the case identified by caseNumber.
// When sanitize is set, the answer passes through the same redaction used for
// case summaries.
func (s *QAService) AnswerQuestion(ctx context.Context, caseNumber, question string, sanitize bool) (*models.CaseQueryResult, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return nil, &models.ValidationError{Field: "case_id", Message: "required"}
	}
	if strings.TrimSpace(question) == "" {
		return nil, &models.ValidationError{Field: "question", Message: "required"}
	}

	caseContext, caseRef, err := s.caseContext(ctx, caseNumber)
	if err != nil {
		return nil, err
	}

	var out caseAnswerOutput
	err = s.Gateway.CompleteJSON(ctx, llm.Request{
		Prompt:     prompts.BuildCaseQuestionPrompt(caseContext, question),
		SchemaHint: llm.SchemaCaseAnswer,
		MaxTokens:  s.MaxTokens,
		Timeout:    s.LLMTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(out.Answer) == "" {
		out.Answer = "The available case information does not contain enough detail to answer this question."
		out.Sources = nil
		out.Confidence = 0
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	} else if out.Confidence > 1 {
		out.Confidence = 1
	}
	if sanitize {
		out.Answer, _ = s.Sanitizer.Sanitize(out.Answer)
	}

	return &models.CaseQueryResult{
		CaseID:     caseRef,
		Answer:     out.Answer,
		Sources:    out.Sources,
		Confidence: out.Confidence,
	}, nil
}

// caseContext returns the memoized context block for the case, rebuilding it
// after the TTL lapses.
func (s *QAService) caseContext(ctx context.Context, caseNumber string) (string, string, error) {
	s.mu.Lock()
	if entry, ok := s.cache[caseNumber]; ok && time.Now().Before(entry.expires) {
		s.mu.Unlock()
		return entry.context, entry.caseRef, nil
	}
	s.mu.Unlock()

	c, err := s.Fetcher.FetchCase(ctx, caseNumber)
	if err != nil {
		return "", "", err
	}
	related, err := s.Fetcher.FetchRelatedObjects(ctx, c.ID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("case", c.CaseNumber).Msg("related objects unavailable for question context")
		related = nil
	}
	caseContext := prompts.BuildQAContext(c, related)

	s.mu.Lock()
	if s.cache == nil {
		s.cache = make(map[string]cachedContext)
	}
	s.cache[caseNumber] = cachedContext{
		context: caseContext,
		caseRef: c.CaseNumber,
		expires: time.Now().Add(contextCacheTTL),
	}
	s.mu.Unlock()

	return caseContext, c.CaseNumber, nil
}
