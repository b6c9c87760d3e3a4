package service

import (
	"regexp"
	"strings"

	"github.com/customer360-copilot/backend/internal/models"
)

// Sanitizer redacts sensitive content from raw summaries before they can be
// shown outside the organization. Rules run in a fixed order and only ever
// replace matched text with bracketed placeholders, so the transform is
// idempotent and never grows the text with invented content.
type Sanitizer struct {
	// AllowedEmails are external-contact addresses that stay visible.
	AllowedEmails []string
	// InternalNames is the employee roster to redact.
	InternalNames []string
}

var (
	emailPattern     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ticketRefPattern = regexp.MustCompile(`\b(?:CASE|TICK|INC)-\d{3,}\b`)
	phonePattern     = regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{2,9}`)
	accountPattern   = regexp.MustCompile(`\b\d{6,}\b`)
)

func (s Sanitizer) Sanitize(text string) (string, []models.SanitizationEntry) {
	var log []models.SanitizationEntry

	record := func(original, placeholder, kind string) string {
		log = append(log, models.SanitizationEntry{Original: original, Sanitized: placeholder, Type: kind})
		return placeholder
	}

	out := emailPattern.ReplaceAllStringFunc(text, func(m string) string {
		for _, allowed := range s.AllowedEmails {
			if strings.EqualFold(m, allowed) {
				return m
			}
		}
		return record(m, "[EMAIL]", "email")
	})

	// Ticket references before phone/account rules so their digit runs are
	// not half-eaten by the numeric patterns.
	out = ticketRefPattern.ReplaceAllStringFunc(out, func(m string) string {
		return record(m, "[TICKET_REF]", "ticket_ref")
	})

	out = phonePattern.ReplaceAllStringFunc(out, func(m string) string {
		return record(m, "[PHONE]", "phone")
	})

	out = accountPattern.ReplaceAllStringFunc(out, func(m string) string {
		return record(m, "[ACCOUNT_NUM]", "account_number")
	})

	for _, name := range s.InternalNames {
		if name == "" || !strings.Contains(out, name) {
			continue
		}
		out = strings.ReplaceAll(out, name, "[EMPLOYEE]")
		log = append(log, models.SanitizationEntry{Original: name, Sanitized: "[EMPLOYEE]", Type: "employee_name"})
	}

	return out, log
}
