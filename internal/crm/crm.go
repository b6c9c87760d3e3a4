package crm

import (
	"context"

	"github.com/customer360-copilot/backend/internal/models"
)

// Fetcher is the CRM collaborator boundary. Implementations retrieve domain
// records and forward results back; they do no analysis of their own.
type Fetcher interface {
	FetchCase(ctx context.Context, caseNumber string) (models.Case, error)
	FetchRelatedObjects(ctx context.Context, caseID string) ([]models.RelatedObject, error)
	FetchAccountActivities(ctx context.Context, accountID string, dr models.DateRange) ([]models.ActivityRecord, error)
	SearchAccount(ctx context.Context, identifier string) (models.AccountSearchResult, error)
	ListActiveAgents(ctx context.Context, limit int) ([]models.AgentInfo, error)

	// Write-back, pass-through only.
	SaveCaseSummary(ctx context.Context, caseID string, summary string) (string, error)
	NotifyAgents(ctx context.Context, caseID string, agentIDs []string, summary string) error

	CheckConnection(ctx context.Context) error
}
