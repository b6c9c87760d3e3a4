package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/customer360-copilot/backend/internal/models"
)

const apiVersion = "v59.0"

// SalesforceFetcher talks to the Salesforce REST API. The OAuth session is
// shared and read-mostly: it is fetched lazily, reused across requests, and
// refreshed once on a 401.
type SalesforceFetcher struct {
	Domain        string
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	SecurityToken string
	Client        *http.Client

	mu          sync.Mutex
	accessToken string
	instanceURL string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

type queryResponse struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []map[string]any `json:"records"`
}

func (f *SalesforceFetcher) httpClient() *http.Client {
	if f.Client == nil {
		f.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return f.Client
}

func (f *SalesforceFetcher) connect(ctx context.Context) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accessToken != "" {
		return f.accessToken, f.instanceURL, nil
	}

	tokenURL := fmt.Sprintf("https://%s.salesforce.com/services/oauth2/token", f.Domain)
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {f.ClientID},
		"client_secret": {f.ClientSecret},
		"username":      {f.Username},
		"password":      {f.Password + f.SecurityToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return "", "", &models.UpstreamError{Upstream: "salesforce", Err: err}
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", "", &models.UpstreamError{Upstream: "salesforce", Err: err}
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" {
		return "", "", &models.UpstreamError{
			Upstream: "salesforce",
			Err:      fmt.Errorf("oauth token request failed: %s %s", tok.Error, tok.ErrorDesc),
		}
	}

	f.accessToken = tok.AccessToken
	f.instanceURL = tok.InstanceURL
	return f.accessToken, f.instanceURL, nil
}

func (f *SalesforceFetcher) invalidateSession() {
	f.mu.Lock()
	f.accessToken = ""
	f.instanceURL = ""
	f.mu.Unlock()
}

// query runs a SOQL query and follows nextRecordsUrl until all pages are
// consumed. A 401 invalidates the session and retries once with a fresh token.
func (f *SalesforceFetcher) query(ctx context.Context, soql string) ([]map[string]any, error) {
	records, err := f.queryOnce(ctx, soql)
	if err != nil && errors.Is(err, errSessionExpired) {
		f.invalidateSession()
		records, err = f.queryOnce(ctx, soql)
	}
	return records, err
}

var errSessionExpired = errors.New("salesforce session expired")

func (f *SalesforceFetcher) queryOnce(ctx context.Context, soql string) ([]map[string]any, error) {
	token, instance, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/query?q=%s", instance, apiVersion, url.QueryEscape(soql))
	var out []map[string]any
	for endpoint != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := f.httpClient().Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, &models.UpstreamError{Upstream: "salesforce", Err: fmt.Errorf("query timed out")}
			}
			return nil, &models.UpstreamError{Upstream: "salesforce", Err: err}
		}

		var page queryResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errSessionExpired
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &models.UpstreamError{Upstream: "salesforce", Err: fmt.Errorf("query http error: %s", resp.Status)}
		}
		if decodeErr != nil {
			return nil, &models.UpstreamError{Upstream: "salesforce", Err: decodeErr}
		}

		out = append(out, page.Records...)
		if page.Done || page.NextRecordsURL == "" {
			break
		}
		endpoint = instance + page.NextRecordsURL
	}
	return out, nil
}

func (f *SalesforceFetcher) FetchCase(ctx context.Context, caseNumber string) (models.Case, error) {
	soql := fmt.Sprintf(
		`SELECT Id, CaseNumber, Subject, Description, Priority, Status, IsClosed, ClosedDate, CreatedDate, AccountId, ContactId FROM Case WHERE CaseNumber = '%s' LIMIT 1`,
		escapeSOQL(caseNumber))
	records, err := f.query(ctx, soql)
	if err != nil {
		return models.Case{}, err
	}
	if len(records) == 0 {
		return models.Case{}, &models.NotFoundError{Resource: "case", ID: caseNumber}
	}
	return parseCaseRecord(records[0]), nil
}

func (f *SalesforceFetcher) FetchRelatedObjects(ctx context.Context, caseID string) ([]models.RelatedObject, error) {
	id := escapeSOQL(caseID)
	queries := []struct {
		name string
		soql string
	}{
		{"Account", fmt.Sprintf(`SELECT Account.Id, Account.Name, Account.Industry, Account.Type, Account.Phone, Account.BillingCity, Account.BillingCountry FROM Case WHERE Id = '%s' AND AccountId != null`, id)},
		{"Contact", fmt.Sprintf(`SELECT Contact.Id, Contact.Name, Contact.Email, Contact.Phone, Contact.Title, Contact.Department FROM Case WHERE Id = '%s' AND ContactId != null`, id)},
		{"CaseComment", fmt.Sprintf(`SELECT Id, CommentBody, CreatedDate, IsPublished FROM CaseComment WHERE ParentId = '%s' ORDER BY CreatedDate`, id)},
		{"EmailMessage", fmt.Sprintf(`SELECT Id, Subject, TextBody, FromAddress, ToAddress, MessageDate, Status FROM EmailMessage WHERE ParentId = '%s' ORDER BY MessageDate`, id)},
	}

	var out []models.RelatedObject
	for _, q := range queries {
		records, err := f.query(ctx, q.soql)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		out = append(out, models.RelatedObject{ObjectName: q.name, Records: cleanRecords(records)})
	}
	return out, nil
}

func (f *SalesforceFetcher) FetchAccountActivities(ctx context.Context, accountID string, dr models.DateRange) ([]models.ActivityRecord, error) {
	id := escapeSOQL(accountID)
	start := dr.Start.Format("2006-01-02")
	end := dr.End.Format("2006-01-02")

	var out []models.ActivityRecord

	tasks, err := f.query(ctx, fmt.Sprintf(
		`SELECT Id, Subject, Status, Priority, ActivityDate, Owner.Name FROM Task WHERE AccountId = '%s' AND ActivityDate >= %s AND ActivityDate <= %s ORDER BY ActivityDate`,
		id, start, end))
	if err != nil {
		return nil, err
	}
	for _, r := range tasks {
		out = append(out, parseActivityRecord(r, models.ActivityTask))
	}

	events, err := f.query(ctx, fmt.Sprintf(
		`SELECT Id, Subject, ActivityDate, Owner.Name FROM Event WHERE AccountId = '%s' AND ActivityDate >= %s AND ActivityDate <= %s ORDER BY ActivityDate`,
		id, start, end))
	if err != nil {
		return nil, err
	}
	for _, r := range events {
		out = append(out, parseActivityRecord(r, models.ActivityEvent))
	}

	cases, err := f.query(ctx, fmt.Sprintf(
		`SELECT Id, Subject, Status, Priority, CreatedDate, Owner.Name FROM Case WHERE AccountId = '%s' AND CreatedDate >= %sT00:00:00Z AND CreatedDate <= %sT23:59:59Z ORDER BY CreatedDate`,
		id, start, end))
	if err != nil {
		return nil, err
	}
	for _, r := range cases {
		out = append(out, parseActivityRecord(r, models.ActivityCase))
	}

	return out, nil
}

func (f *SalesforceFetcher) SearchAccount(ctx context.Context, identifier string) (models.AccountSearchResult, error) {
	ident := escapeSOQL(identifier)
	soql := fmt.Sprintf(
		`SELECT Id, Name, Type, Industry, Website, Phone, BillingCity, BillingState, BillingCountry, Owner.Name FROM Account WHERE Id = '%s' OR Name LIKE '%%%s%%' LIMIT 1`,
		ident, ident)
	records, err := f.query(ctx, soql)
	if err != nil {
		return models.AccountSearchResult{}, err
	}
	if len(records) == 0 {
		return models.AccountSearchResult{
			Found:   false,
			Message: fmt.Sprintf("No account found for %q", identifier),
		}, nil
	}
	acc := parseAccountRecord(records[0])
	return models.AccountSearchResult{Found: true, Account: &acc}, nil
}

func (f *SalesforceFetcher) ListActiveAgents(ctx context.Context, limit int) ([]models.AgentInfo, error) {
	if limit <= 0 {
		limit = 3
	}
	records, err := f.query(ctx, fmt.Sprintf(
		`SELECT Id, Name, Email FROM User WHERE IsActive = true AND UserType = 'Standard' LIMIT %d`, limit))
	if err != nil {
		return nil, err
	}
	agents := make([]models.AgentInfo, 0, len(records))
	for _, r := range records {
		agents = append(agents, models.AgentInfo{
			ID:    getString(r, "Id"),
			Name:  getString(r, "Name"),
			Email: getString(r, "Email"),
		})
	}
	return agents, nil
}

func (f *SalesforceFetcher) SaveCaseSummary(ctx context.Context, caseID string, summary string) (string, error) {
	token, instance, err := f.connect(ctx)
	if err != nil {
		return "", err
	}

	body, _ := json.Marshal(map[string]any{
		"ParentId":    caseID,
		"CommentBody": summary,
	})
	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/CaseComment", instance, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return "", &models.UpstreamError{Upstream: "salesforce", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &models.UpstreamError{Upstream: "salesforce", Err: fmt.Errorf("save summary http error: %s", resp.Status)}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &models.UpstreamError{Upstream: "salesforce", Err: err}
	}
	return created.ID, nil
}

func (f *SalesforceFetcher) NotifyAgents(ctx context.Context, caseID string, agentIDs []string, summary string) error {
	// Notification fan-out is a CRM concern; one comment per agent keeps the
	// trail on the case record.
	for _, agentID := range agentIDs {
		text := fmt.Sprintf("[FYI %s] %s", agentID, summary)
		if _, err := f.SaveCaseSummary(ctx, caseID, text); err != nil {
			return err
		}
	}
	return nil
}

func (f *SalesforceFetcher) CheckConnection(ctx context.Context) error {
	_, err := f.query(ctx, `SELECT Id FROM User LIMIT 1`)
	return err
}

func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func parseCaseRecord(r map[string]any) models.Case {
	c := models.Case{
		ID:          getString(r, "Id"),
		CaseNumber:  getString(r, "CaseNumber"),
		Subject:     getString(r, "Subject"),
		Description: getString(r, "Description"),
		Priority:    getString(r, "Priority"),
		Status:      getString(r, "Status"),
		AccountID:   getString(r, "AccountId"),
		ContactID:   getString(r, "ContactId"),
	}
	if v, ok := r["IsClosed"].(bool); ok {
		c.IsClosed = v
	}
	if t, ok := parseSFTime(getString(r, "CreatedDate")); ok {
		c.CreatedDate = t
	}
	if t, ok := parseSFTime(getString(r, "ClosedDate")); ok {
		c.ClosedDate = &t
	}
	return c
}

func parseActivityRecord(r map[string]any, typ string) models.ActivityRecord {
	date := getString(r, "ActivityDate")
	if date == "" {
		date = getString(r, "CreatedDate")
	}
	owner := ""
	if o, ok := r["Owner"].(map[string]any); ok {
		owner = getString(o, "Name")
	}
	return models.ActivityRecord{
		ID:           getString(r, "Id"),
		Type:         typ,
		Subject:      getString(r, "Subject"),
		Status:       getString(r, "Status"),
		Priority:     getString(r, "Priority"),
		ActivityDate: date,
		OwnerName:    owner,
	}
}

func parseAccountRecord(r map[string]any) models.Account {
	owner := ""
	if o, ok := r["Owner"].(map[string]any); ok {
		owner = getString(o, "Name")
	}
	return models.Account{
		ID:             getString(r, "Id"),
		Name:           getString(r, "Name"),
		Type:           getString(r, "Type"),
		Industry:       getString(r, "Industry"),
		Website:        getString(r, "Website"),
		Phone:          getString(r, "Phone"),
		BillingCity:    getString(r, "BillingCity"),
		BillingState:   getString(r, "BillingState"),
		BillingCountry: getString(r, "BillingCountry"),
		OwnerName:      owner,
	}
}

// cleanRecords strips the attributes envelope Salesforce adds to every row.
func cleanRecords(records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		clean := make(map[string]any, len(r))
		for k, v := range r {
			if k == "attributes" {
				continue
			}
			if nested, ok := v.(map[string]any); ok {
				delete(nested, "attributes")
			}
			clean[k] = v
		}
		out = append(out, clean)
	}
	return out
}

func parseSFTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func getString(r map[string]any, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
