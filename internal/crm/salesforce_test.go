package crm

import (
	"testing"
)

func TestParseCaseRecord(t *testing.T) {
	record := map[string]any{
		"Id":          "500XX",
		"CaseNumber":  "00001234",
		"Subject":     "Login failures",
		"Description": "Users cannot log in.",
		"Priority":    "High",
		"Status":      "Closed",
		"IsClosed":    true,
		"CreatedDate": "2025-01-15T10:30:00.000+0000",
		"ClosedDate":  "2025-02-01T08:00:00.000+0000",
		"AccountId":   "001XX",
		"ContactId":   "003XX",
	}

	c := parseCaseRecord(record)
	if c.CaseNumber != "00001234" || c.Subject != "Login failures" {
		t.Fatalf("unexpected case %+v", c)
	}
	if !c.IsClosed || c.ClosedDate == nil {
		t.Fatalf("closed flags not parsed: %+v", c)
	}
	if c.CreatedDate.IsZero() {
		t.Fatalf("created date not parsed")
	}
	if c.AccountID != "001XX" || c.ContactID != "003XX" {
		t.Fatalf("lookup ids not parsed: %+v", c)
	}
}

func TestParseActivityRecordFallsBackToCreatedDate(t *testing.T) {
	record := map[string]any{
		"Id":          "00TXX",
		"Subject":     "Follow up call",
		"Status":      "Completed",
		"CreatedDate": "2025-03-02T09:00:00.000+0000",
		"Owner":       map[string]any{"Name": "Sam Rivera"},
	}

	a := parseActivityRecord(record, "Task")
	if a.Type != "Task" {
		t.Fatalf("unexpected type %s", a.Type)
	}
	if a.ActivityDate == "" {
		t.Fatalf("expected CreatedDate fallback for missing ActivityDate")
	}
	if a.OwnerName != "Sam Rivera" {
		t.Fatalf("owner not parsed: %+v", a)
	}
}

func TestParseSFTime(t *testing.T) {
	for _, input := range []string{
		"2025-01-15T10:30:00.000+0000",
		"2025-01-15T10:30:00Z",
		"2025-01-15",
	} {
		if _, ok := parseSFTime(input); !ok {
			t.Fatalf("failed to parse %q", input)
		}
	}
	if _, ok := parseSFTime(""); ok {
		t.Fatalf("empty string must not parse")
	}
	if _, ok := parseSFTime("not a date"); ok {
		t.Fatalf("garbage must not parse")
	}
}

func TestEscapeSOQL(t *testing.T) {
	got := escapeSOQL(`O'Brien \ Co`)
	want := `O\'Brien \\ Co`
	if got != want {
		t.Fatalf("escapeSOQL = %q, want %q", got, want)
	}
}

func TestCleanRecordsStripsAttributes(t *testing.T) {
	records := []map[string]any{
		{
			"attributes": map[string]any{"type": "Case"},
			"Subject":    "Login failures",
			"Owner":      map[string]any{"attributes": map[string]any{"type": "User"}, "Name": "Sam"},
		},
	}

	clean := cleanRecords(records)
	if len(clean) != 1 {
		t.Fatalf("expected 1 record, got %d", len(clean))
	}
	if _, ok := clean[0]["attributes"]; ok {
		t.Fatalf("top-level attributes not stripped")
	}
	owner := clean[0]["Owner"].(map[string]any)
	if _, ok := owner["attributes"]; ok {
		t.Fatalf("nested attributes not stripped")
	}
}
