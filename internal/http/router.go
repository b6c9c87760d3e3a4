package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/customer360-copilot/backend/internal/config"
	"github.com/customer360-copilot/backend/internal/http/handlers"
	"github.com/customer360-copilot/backend/internal/http/middleware"

	_ "github.com/customer360-copilot/backend/docs"
)

func Router(cfg config.Config, h *handlers.Handler, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.POST("/cases/analyze", h.AnalyzeCase)
		api.GET("/cases/:id", h.GetCase)
		api.POST("/cases/:id/query", h.QueryCase)
		api.POST("/accounts/search", h.SearchAccount)
		api.POST("/accounts/:id/insights", h.AccountInsights)
		api.GET("/agents/available", h.ListAgents)
		api.GET("/crm/health", h.CRMHealth)
		api.GET("/llm/metrics", h.LLMMetrics)
		api.GET("/runs/latest", h.LatestRun)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/cases/:id/save-summary", h.SaveSummary)
		admin.POST("/cases/:id/notify-agents", h.NotifyAgents)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
