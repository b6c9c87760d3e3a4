package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/customer360-copilot/backend/internal/crm"
	"github.com/customer360-copilot/backend/internal/db"
	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/models"
	"github.com/customer360-copilot/backend/internal/service"
)

type Handler struct {
	Analysis *service.AnalysisService
	Insights *service.InsightsService
	QA       *service.QAService
	Fetcher  crm.Fetcher
	Gateway  *llm.Gateway
	Runs     *db.Store
	Validate *validator.Validate
	Logger   zerolog.Logger
}

func New(analysis *service.AnalysisService, insights *service.InsightsService, qa *service.QAService, fetcher crm.Fetcher, gateway *llm.Gateway, runs *db.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		Analysis: analysis,
		Insights: insights,
		QA:       qa,
		Fetcher:  fetcher,
		Gateway:  gateway,
		Runs:     runs,
		Validate: validator.New(),
		Logger:   logger,
	}
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	body := gin.H{"code": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// writeDomainError maps the domain error taxonomy onto the HTTP surface.
func (h *Handler) writeDomainError(c *gin.Context, err error) {
	var notFound *models.NotFoundError
	var validation *models.ValidationError
	var generation *models.GenerationError
	var upstream *models.UpstreamError

	switch {
	case errors.As(err, &notFound):
		writeError(c, http.StatusNotFound, "not_found", notFound.Error(), nil)
	case errors.As(err, &validation):
		writeError(c, http.StatusBadRequest, "validation_failed", validation.Error(), gin.H{"field": validation.Field})
	case errors.As(err, &generation):
		writeError(c, http.StatusBadGateway, "generation_failed", "analysis generation failed", gin.H{"retryable": generation.Retryable})
	case errors.As(err, &upstream):
		writeError(c, http.StatusServiceUnavailable, "upstream_unavailable", upstream.Error(), nil)
	default:
		h.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

type analyzeCaseRequest struct {
	CaseID         string `json:"case_id" binding:"required"`
	IncludeRelated *bool  `json:"include_related_objects"`
}

// AnalyzeCase godoc
// @Summary      Analyze a support case
// @Description  Runs the full case-analysis workflow and returns either an analysis or a closed-case notice.
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        request body analyzeCaseRequest true "Case to analyze"
// @Success      200 {object} models.AnalysisOutcome
// @Failure      400 {object} map[string]any
// @Failure      404 {object} map[string]any
// @Failure      502 {object} map[string]any
// @Router       /api/cases/analyze [post]
func (h *Handler) AnalyzeCase(c *gin.Context) {
	var req analyzeCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}
	includeRelated := true
	if req.IncludeRelated != nil {
		includeRelated = *req.IncludeRelated
	}

	finish := h.startRun(c, db.RunKindCaseAnalysis, req.CaseID)
	outcome, err := h.Analysis.AnalyzeCase(c.Request.Context(), req.CaseID, includeRelated)
	finish(err)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type accountInsightsRequest struct {
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Formats   []string `json:"formats" validate:"required,min=1,dive,oneof=pointers tables charts"`
}

// AccountInsights godoc
// @Summary      Generate account activity insights
// @Description  Aggregates an account's activity history over a date range into an executive report.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id      path string                 true "Account name or CRM id"
// @Param        request body accountInsightsRequest true "Date range and output formats"
// @Success      200 {object} models.AccountInsightsResult
// @Failure      400 {object} map[string]any
// @Failure      404 {object} map[string]any
// @Router       /api/accounts/{id}/insights [post]
func (h *Handler) AccountInsights(c *gin.Context) {
	var req accountInsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_failed", "invalid insights request", err.Error())
		return
	}
	dr, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	formats := make([]models.SummaryFormat, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, models.SummaryFormat(f))
	}

	accountID := c.Param("id")
	finish := h.startRun(c, db.RunKindAccountInsights, accountID)
	result, err := h.Insights.GenerateInsights(c.Request.Context(), accountID, dr, formats)
	finish(err)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type caseQueryRequest struct {
	Question string `json:"question" binding:"required"`
	Sanitize bool   `json:"sanitized"`
}

// QueryCase godoc
// @Summary      Ask a question about a case
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id      path string           true "Case number"
// @Param        request body caseQueryRequest true "Question"
// @Success      200 {object} models.CaseQueryResult
// @Failure      400 {object} map[string]any
// @Failure      404 {object} map[string]any
// @Router       /api/cases/{id}/query [post]
func (h *Handler) QueryCase(c *gin.Context) {
	var req caseQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}

	caseID := c.Param("id")
	finish := h.startRun(c, db.RunKindCaseQuery, caseID)
	result, err := h.QA.AnswerQuestion(c.Request.Context(), caseID, req.Question, req.Sanitize)
	finish(err)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCase godoc
// @Summary      Fetch case details
// @Tags         cases
// @Produce      json
// @Param        id path string true "Case number"
// @Success      200 {object} models.Case
// @Failure      404 {object} map[string]any
// @Router       /api/cases/{id} [get]
func (h *Handler) GetCase(c *gin.Context) {
	caseRecord, err := h.Fetcher.FetchCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, caseRecord)
}

type accountSearchRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// SearchAccount godoc
// @Summary      Look up an account by name or id
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body accountSearchRequest true "Account name or CRM id"
// @Success      200 {object} models.AccountSearchResult
// @Failure      400 {object} map[string]any
// @Router       /api/accounts/search [post]
func (h *Handler) SearchAccount(c *gin.Context) {
	var req accountSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}
	result, err := h.Fetcher.SearchAccount(c.Request.Context(), req.Identifier)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type saveSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// SaveSummary godoc
// @Summary      Write a summary back to the CRM as a case comment
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id      path string             true "Case id"
// @Param        request body saveSummaryRequest true "Summary text"
// @Security     AdminKey
// @Success      200 {object} map[string]any
// @Failure      401 {object} map[string]any
// @Router       /api/cases/{id}/save-summary [post]
func (h *Handler) SaveSummary(c *gin.Context) {
	var req saveSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}
	commentID, err := h.Fetcher.SaveCaseSummary(c.Request.Context(), c.Param("id"), req.Summary)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment_id": commentID})
}

type notifyAgentsRequest struct {
	AgentIDs []string `json:"agent_ids" binding:"required,min=1"`
	Summary  string   `json:"summary" binding:"required"`
}

// NotifyAgents godoc
// @Summary      Notify agents about a case summary
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id      path string              true "Case id"
// @Param        request body notifyAgentsRequest true "Agents and summary"
// @Security     AdminKey
// @Success      200 {object} map[string]any
// @Failure      401 {object} map[string]any
// @Router       /api/cases/{id}/notify-agents [post]
func (h *Handler) NotifyAgents(c *gin.Context) {
	var req notifyAgentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}
	if err := h.Fetcher.NotifyAgents(c.Request.Context(), c.Param("id"), req.AgentIDs, req.Summary); err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notified": len(req.AgentIDs)})
}

// ListAgents godoc
// @Summary      List active agents available for notification
// @Tags         agents
// @Produce      json
// @Param        limit query int false "Maximum number of agents"
// @Success      200 {object} map[string]any
// @Failure      400 {object} map[string]any
// @Router       /api/agents/available [get]
func (h *Handler) ListAgents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(c, http.StatusBadRequest, "validation_failed", "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}
	agents, err := h.Fetcher.ListActiveAgents(c.Request.Context(), limit)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents, "count": len(agents)})
}

// Health godoc
// @Summary      Liveness probe
// @Tags         ops
// @Produce      json
// @Success      200 {object} map[string]any
// @Router       /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CRMHealth godoc
// @Summary      CRM connectivity check
// @Tags         ops
// @Produce      json
// @Success      200 {object} map[string]any
// @Failure      503 {object} map[string]any
// @Router       /api/crm/health [get]
func (h *Handler) CRMHealth(c *gin.Context) {
	if err := h.Fetcher.CheckConnection(c.Request.Context()); err != nil {
		h.writeDomainError(c, &models.UpstreamError{Upstream: "crm", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LLMMetrics godoc
// @Summary      LLM gateway counters
// @Tags         ops
// @Produce      json
// @Success      200 {object} llm.Metrics
// @Router       /api/llm/metrics [get]
func (h *Handler) LLMMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Gateway.Metrics())
}

// LatestRun godoc
// @Summary      Most recent workflow run from the ledger
// @Tags         ops
// @Produce      json
// @Success      200 {object} db.Run
// @Failure      404 {object} map[string]any
// @Router       /api/runs/latest [get]
func (h *Handler) LatestRun(c *gin.Context) {
	if h.Runs == nil {
		writeError(c, http.StatusNotFound, "not_found", "run ledger is not configured", nil)
		return
	}
	run, err := h.Runs.GetLatestRun(c.Request.Context())
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// startRun opens a ledger entry and returns a closer that records the
// outcome. With no ledger configured both are no-ops.
func (h *Handler) startRun(c *gin.Context, kind, subjectID string) func(error) {
	if h.Runs == nil {
		return func(error) {}
	}
	before := h.Gateway.Metrics()
	start := time.Now()
	id, err := h.Runs.CreateRun(c.Request.Context(), kind, subjectID)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("run ledger insert failed")
		return func(error) {}
	}
	return func(workErr error) {
		status := db.RunStatusCompleted
		if workErr != nil {
			status = db.RunStatusFailed
		}
		after := h.Gateway.Metrics()
		if err := h.Runs.FinishRun(c.Request.Context(), id, status, time.Since(start),
			after.Calls-before.Calls, after.Retries-before.Retries); err != nil {
			h.Logger.Warn().Err(err).Msg("run ledger update failed")
		}
	}
}

func parseDateRange(start, end string) (models.DateRange, error) {
	startT, err := time.Parse("2006-01-02", start)
	if err != nil {
		return models.DateRange{}, &models.ValidationError{Field: "start_date", Message: "must be YYYY-MM-DD"}
	}
	endT, err := time.Parse("2006-01-02", end)
	if err != nil {
		return models.DateRange{}, &models.ValidationError{Field: "end_date", Message: "must be YYYY-MM-DD"}
	}
	// Make the end date inclusive of its whole day.
	return models.DateRange{Start: startT, End: endT.Add(24*time.Hour - time.Second)}, nil
}
