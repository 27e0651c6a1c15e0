// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrConversationConflict is returned when another message advanced the
// conversation first.
var ErrConversationConflict = errors.New("conversation state changed concurrently")

// ConversationState is the WhatsApp intake stage of a lead. The state names
// the last question the lead has been asked.
type ConversationState string

const (
	StateStarted      ConversationState = "started"
	StateBusinessName ConversationState = "business_name"
	StateWebsite      ConversationState = "website"
	StateEmail        ConversationState = "email"
	StateIssues       ConversationState = "issues"
	StateIndustry     ConversationState = "industry"
	StateComplete     ConversationState = "complete"
)

// ConversationStates lists every state in intake order.
var ConversationStates = []ConversationState{
	StateStarted,
	StateBusinessName,
	StateWebsite,
	StateEmail,
	StateIssues,
	StateIndustry,
	StateComplete,
}

func (s ConversationState) Valid() bool {
	for _, known := range ConversationStates {
		if s == known {
			return true
		}
	}
	return false
}

func (s ConversationState) IsTerminal() bool {
	return s == StateComplete
}

// Source values for Lead.Source.
const (
	SourceWhatsApp    = "whatsapp"
	SourceQualifyForm = "qualify_form"
)

// Blueprint is the automation plan the qualifier attaches to a lead.
type Blueprint struct {
	AutomatableProcesses []string `json:"automatable_processes"`
	SuggestedTemplates   []string `json:"suggested_templates"`
	Reasoning            string   `json:"reasoning,omitempty"`
}

// Lead is a prospective customer tracked from first contact to provisioning.
type Lead struct {
	ID                  string
	PhoneNumber         *string
	Source              string
	ConversationState   ConversationState
	BusinessName        *string
	ContactName         *string
	Website             *string
	Email               *string
	Industry            *string
	CompanySize         *string
	BusinessIssues      []string
	QualificationStatus QualificationStatus
	Scores              *Scores
	RecommendedTier     *Tier
	Reasoning           *string
	Blueprint           *Blueprint
	QualifyingStartedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DisplayName is the best human label for operator messages.
func (l Lead) DisplayName() string {
	if name := deref(l.BusinessName); name != "" {
		return name
	}
	if name := deref(l.ContactName); name != "" {
		return name
	}
	if phone := deref(l.PhoneNumber); phone != "" {
		return phone
	}
	return l.ID
}

func (l Lead) Phone() string        { return deref(l.PhoneNumber) }
func (l Lead) EmailAddress() string { return deref(l.Email) }

// FieldUpdate is the set of intake fields written alongside a state change.
// Nil pointers leave the column untouched.
type FieldUpdate struct {
	BusinessName   *string
	Website        *string
	ClearWebsite   bool
	Email          *string
	BusinessIssues []string
	Industry       *string
}

// IsEmpty reports whether the update writes no field.
func (u FieldUpdate) IsEmpty() bool {
	return u.BusinessName == nil && u.Website == nil && !u.ClearWebsite &&
		u.Email == nil && u.BusinessIssues == nil && u.Industry == nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
