// Package events defines the lead pipeline's domain events.
// The bus itself lives in platform/events.
package events

import (
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/events"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Subscriber  = events.Subscriber
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Qualification Domain Events
// =============================================================================

// LeadQualified is published when the qualifier scored a lead at or above the
// threshold. The operator summary is sent from its handler.
type LeadQualified struct {
	BaseEvent
	LeadID  string  `json:"leadId"`
	Overall float64 `json:"overall"`
	Tier    string  `json:"tier"`
}

func (e LeadQualified) EventName() string { return "leads.lead.qualified" }

// LeadDisqualified is published when the qualifier scored a lead below the threshold.
type LeadDisqualified struct {
	BaseEvent
	LeadID  string  `json:"leadId"`
	Overall float64 `json:"overall"`
}

func (e LeadDisqualified) EventName() string { return "leads.lead.disqualified" }

// =============================================================================
// Proposal Domain Events
// =============================================================================

// ProposalGenerated is published once a proposal is stored for a qualified lead.
type ProposalGenerated struct {
	BaseEvent
	LeadID           string   `json:"leadId"`
	SessionID        string   `json:"sessionId"`
	Email            string   `json:"email"`
	BusinessName     string   `json:"businessName"`
	ExecutiveSummary string   `json:"executiveSummary"`
	RecommendedTier  string   `json:"recommendedTier"`
	MonthlyPrice     string   `json:"monthlyPrice"`
	NextSteps        []string `json:"nextSteps"`
	ArchiveKey       string   `json:"archiveKey,omitempty"`
}

func (e ProposalGenerated) EventName() string { return "leads.proposal.generated" }
