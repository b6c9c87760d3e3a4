package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/customer360-copilot/backend/internal/crm"
	"github.com/customer360-copilot/backend/internal/http/middleware"
	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/models"
	"github.com/customer360-copilot/backend/internal/service"
)

// testFetcher wraps the deterministic mock but pins FetchCase output so tests
// control the closed flag.
type testFetcher struct {
	crm.MockFetcher
	caseRecord *models.Case
	caseErr    error
}

func (f *testFetcher) FetchCase(ctx context.Context, caseNumber string) (models.Case, error) {
	if f.caseErr != nil {
		return models.Case{}, f.caseErr
	}
	if f.caseRecord != nil {
		return *f.caseRecord, nil
	}
	return f.MockFetcher.FetchCase(ctx, caseNumber)
}

func newTestRouter(fetcher crm.Fetcher) (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)
	gateway := llm.NewGateway(llm.MockCompleter{}, 0)
	logger := zerolog.Nop()

	analysis := &service.AnalysisService{Fetcher: fetcher, Gateway: gateway, Logger: logger}
	insights := &service.InsightsService{Fetcher: fetcher, Gateway: gateway, Logger: logger}
	qa := &service.QAService{Fetcher: fetcher, Gateway: gateway, Logger: logger}

	h := New(analysis, insights, qa, fetcher, gateway, nil, logger)

	r := gin.New()
	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	api.POST("/cases/analyze", h.AnalyzeCase)
	api.GET("/cases/:id", h.GetCase)
	api.POST("/cases/:id/query", h.QueryCase)
	api.POST("/accounts/search", h.SearchAccount)
	api.POST("/accounts/:id/insights", h.AccountInsights)
	api.GET("/agents/available", h.ListAgents)
	api.GET("/llm/metrics", h.LLMMetrics)
	api.GET("/runs/latest", h.LatestRun)
	admin := api.Group("")
	admin.Use(middleware.AdminKey("secret"))
	admin.POST("/cases/:id/save-summary", h.SaveSummary)
	return r, h
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeClosedCaseHTTP(t *testing.T) {
	closedAt := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	r, _ := newTestRouter(&testFetcher{caseRecord: &models.Case{
		ID: "500XX", CaseNumber: "00009999", Status: "Closed",
		IsClosed: true, ClosedDate: &closedAt,
	}})

	w := doJSON(t, r, http.MethodPost, "/api/cases/analyze", map[string]any{"case_id": "00009999"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var outcome models.AnalysisOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.Kind != models.OutcomeClosed || outcome.Closed == nil {
		t.Fatalf("expected closed outcome, got %+v", outcome)
	}
}

func TestAnalyzeOpenCaseHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{caseRecord: &models.Case{
		ID: "500XX", CaseNumber: "00001234", Subject: "Dashboard access",
		Status: "Working", Priority: "High",
	}})

	w := doJSON(t, r, http.MethodPost, "/api/cases/analyze", map[string]any{"case_id": "00001234"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var outcome models.AnalysisOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.Kind != models.OutcomeAnalyzed || outcome.Analysis == nil {
		t.Fatalf("expected analyzed outcome, got %+v", outcome)
	}
	if outcome.Analysis.SanitizedSummary == "" {
		t.Fatalf("expected a sanitized summary")
	}
}

func TestAnalyzeMissingBody(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodPost, "/api/cases/analyze", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCaseNotFoundHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{caseErr: &models.NotFoundError{Resource: "case", ID: "nope"}})
	w := doJSON(t, r, http.MethodPost, "/api/cases/analyze", map[string]any{"case_id": "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %q", envelope.Error.Code)
	}
}

func TestInsightsReversedRangeHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodPost, "/api/accounts/TechVision/insights", map[string]any{
		"start_date": "2025-03-01",
		"end_date":   "2025-01-01",
		"formats":    []string{"pointers"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reversed range, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInsightsPayloadValidation(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})

	w := doJSON(t, r, http.MethodPost, "/api/accounts/TechVision/insights", map[string]any{
		"start_date": "01/01/2025",
		"end_date":   "2025-03-31",
		"formats":    []string{"pointers"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed date, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/accounts/TechVision/insights", map[string]any{
		"start_date": "2025-01-01",
		"end_date":   "2025-03-31",
		"formats":    []string{"sparklines"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown format, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInsightsHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodPost, "/api/accounts/TechVision/insights", map[string]any{
		"start_date": "2025-01-01",
		"end_date":   "2025-03-31",
		"formats":    []string{"pointers", "charts"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result models.AccountInsightsResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.AccountName != "TechVision" {
		t.Fatalf("unexpected account %q", result.AccountName)
	}
	if result.TotalActivities > 0 && result.ProcessingInfo.BatchesProcessed == 0 {
		t.Fatalf("activities without batches: %+v", result.ProcessingInfo)
	}
}

func TestQueryCaseHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{caseRecord: &models.Case{
		ID: "500XX", CaseNumber: "00001234", Subject: "Dashboard access", Status: "Working",
	}})
	w := doJSON(t, r, http.MethodPost, "/api/cases/00001234/query", map[string]any{"question": "What is blocked?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result models.CaseQueryResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Answer == "" || result.Confidence <= 0 {
		t.Fatalf("unexpected answer %+v", result)
	}
}

func TestAccountSearchHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodPost, "/api/accounts/search", map[string]any{"identifier": "TechVision"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result models.AccountSearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Found || result.Account == nil {
		t.Fatalf("expected a found account, got %+v", result)
	}

	w = doJSON(t, r, http.MethodPost, "/api/accounts/search", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing identifier, got %d", w.Code)
	}
}

func TestListAgentsHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodGet, "/api/agents/available?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Agents []models.AgentInfo `json:"agents"`
		Count  int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 2 || len(body.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %+v", body)
	}
	for _, agent := range body.Agents {
		if agent.ID == "" || agent.Email == "" {
			t.Fatalf("incomplete agent record %+v", agent)
		}
	}

	w = doJSON(t, r, http.MethodGet, "/api/agents/available?limit=oops", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", w.Code)
	}
}

func TestAdminKeyRequired(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodPost, "/api/cases/500XX/save-summary", map[string]any{"summary": "done"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin key, got %d", w.Code)
	}

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]any{"summary": "done"})
	req, _ := http.NewRequest(http.MethodPost, "/api/cases/500XX/save-summary", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", "secret")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 with admin key, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestLLMMetricsHTTP(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodGet, "/api/llm/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var m llm.Metrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
}

func TestLatestRunWithoutLedger(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodGet, "/api/runs/latest", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when the ledger is disabled, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(&testFetcher{})
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
