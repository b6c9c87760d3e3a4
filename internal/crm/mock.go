package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/customer360-copilot/backend/internal/models"
	"github.com/customer360-copilot/backend/internal/utils"
)

// MockFetcher serves deterministic records derived from identifier hashes,
// for local development and tests without a Salesforce org.
type MockFetcher struct{}

var mockStatuses = []string{"New", "Working", "Escalated", "Closed"}
var mockPriorities = []string{"Low", "Medium", "High"}

func (m MockFetcher) FetchCase(ctx context.Context, caseNumber string) (models.Case, error) {
	if caseNumber == "" {
		return models.Case{}, &models.NotFoundError{Resource: "case", ID: caseNumber}
	}
	h := utils.HashStringToUint64(caseNumber)
	status := mockStatuses[int(h)%len(mockStatuses)]

	c := models.Case{
		ID:          fmt.Sprintf("500MOCK%09d", h%1e9),
		CaseNumber:  caseNumber,
		Subject:     "Customer unable to access premium features",
		Description: "Customer reports that after upgrading to the premium plan they still cannot open the advanced analytics dashboard. Error: 'Access Denied - Contact Support'",
		Priority:    mockPriorities[int(h/7)%len(mockPriorities)],
		Status:      status,
		CreatedDate: time.Date(2025, 11, 25, 10, 30, 0, 0, time.UTC),
		AccountID:   "001MOCK003DHH0",
		ContactID:   "003MOCK0001234",
	}
	if status == "Closed" {
		c.IsClosed = true
		closed := c.CreatedDate.Add(72 * time.Hour)
		c.ClosedDate = &closed
	}
	return c, nil
}

func (m MockFetcher) FetchRelatedObjects(ctx context.Context, caseID string) ([]models.RelatedObject, error) {
	return []models.RelatedObject{
		{
			ObjectName: "Account",
			Records: []map[string]any{{
				"Id":             "001MOCK003DHH0",
				"Name":           "TechVision Solutions",
				"Industry":       "Technology",
				"Type":           "Customer - Direct",
				"BillingCity":    "San Francisco",
				"BillingCountry": "USA",
			}},
		},
		{
			ObjectName: "Contact",
			Records: []map[string]any{{
				"Id":         "003MOCK0001234",
				"Name":       "Jennifer Martinez",
				"Email":      "jennifer.martinez@techvision.com",
				"Title":      "Product Manager",
				"Department": "Product",
			}},
		},
		{
			ObjectName: "CaseComment",
			Records: []map[string]any{
				{
					"Id":          "00aMOCK0001111",
					"CommentBody": "Customer upgraded to Premium plan yesterday",
					"IsPublished": true,
				},
				{
					"Id":          "00aMOCK0001112",
					"CommentBody": "Verified payment processed. Account status shows Premium.",
					"IsPublished": false,
				},
			},
		},
	}, nil
}

func (m MockFetcher) FetchAccountActivities(ctx context.Context, accountID string, dr models.DateRange) ([]models.ActivityRecord, error) {
	h := utils.HashStringToUint64(accountID)
	count := int(h % 120)
	types := []string{models.ActivityTask, models.ActivityEvent, models.ActivityCase}

	span := dr.End.Sub(dr.Start)
	out := make([]models.ActivityRecord, 0, count)
	for i := 0; i < count; i++ {
		typ := types[i%len(types)]
		when := dr.Start
		if count > 1 {
			when = dr.Start.Add(span * time.Duration(i) / time.Duration(count))
		}
		out = append(out, models.ActivityRecord{
			ID:           fmt.Sprintf("%s-%s-%04d", accountID, typ, i),
			Type:         typ,
			Subject:      fmt.Sprintf("%s follow-up %d", typ, i),
			Status:       mockStatuses[(i+int(h%uint64(len(mockStatuses))))%len(mockStatuses)],
			Priority:     mockPriorities[i%len(mockPriorities)],
			ActivityDate: when.Format("2006-01-02"),
			OwnerName:    "Mock Owner",
		})
	}
	return out, nil
}

func (m MockFetcher) SearchAccount(ctx context.Context, identifier string) (models.AccountSearchResult, error) {
	if identifier == "" {
		return models.AccountSearchResult{Found: false, Message: "No account found"}, nil
	}
	h := utils.HashStringToUint64(identifier)
	return models.AccountSearchResult{
		Found: true,
		Account: &models.Account{
			ID:             fmt.Sprintf("001MOCK%09d", h%1e9),
			Name:           identifier,
			Type:           "Customer - Direct",
			Industry:       "Technology",
			BillingCity:    "San Francisco",
			BillingCountry: "USA",
			OwnerName:      "Mock Owner",
		},
	}, nil
}

func (m MockFetcher) ListActiveAgents(ctx context.Context, limit int) ([]models.AgentInfo, error) {
	if limit <= 0 {
		limit = 3
	}
	agents := make([]models.AgentInfo, 0, limit)
	for i := 0; i < limit; i++ {
		agents = append(agents, models.AgentInfo{
			ID:    fmt.Sprintf("005MOCK%07d", i),
			Name:  fmt.Sprintf("Agent %d", i+1),
			Email: fmt.Sprintf("agent%d@example.com", i+1),
		})
	}
	return agents, nil
}

func (m MockFetcher) SaveCaseSummary(ctx context.Context, caseID string, summary string) (string, error) {
	return fmt.Sprintf("a00MOCK%09d", utils.HashStringToUint64(caseID+summary)%1e9), nil
}

func (m MockFetcher) NotifyAgents(ctx context.Context, caseID string, agentIDs []string, summary string) error {
	return nil
}

func (m MockFetcher) CheckConnection(ctx context.Context) error {
	return nil
}
