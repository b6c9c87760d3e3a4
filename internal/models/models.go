package models

import "time"

type Case struct {
	ID          string     `json:"id"`
	CaseNumber  string     `json:"case_number"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	IsClosed    bool       `json:"is_closed"`
	ClosedDate  *time.Time `json:"closed_date,omitempty"`
	CreatedDate time.Time  `json:"created_date"`
	AccountID   string     `json:"account_id,omitempty"`
	ContactID   string     `json:"contact_id,omitempty"`
}

// RelatedObject carries records of one CRM object type linked to a case
// (Account, Contact, CaseComment, EmailMessage).
type RelatedObject struct {
	ObjectName string           `json:"object_name"`
	Records    []map[string]any `json:"records"`
}

type Account struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type,omitempty"`
	Industry       string `json:"industry,omitempty"`
	Website        string `json:"website,omitempty"`
	Phone          string `json:"phone,omitempty"`
	BillingCity    string `json:"billing_city,omitempty"`
	BillingState   string `json:"billing_state,omitempty"`
	BillingCountry string `json:"billing_country,omitempty"`
	OwnerName      string `json:"owner_name,omitempty"`
}

const (
	ActivityTask  = "Task"
	ActivityEvent = "Event"
	ActivityCase  = "Case"
)

type ActivityRecord struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Subject      string `json:"subject,omitempty"`
	Status       string `json:"status,omitempty"`
	Priority     string `json:"priority,omitempty"`
	ActivityDate string `json:"activity_date,omitempty"`
	OwnerName    string `json:"owner_name,omitempty"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AgentInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
