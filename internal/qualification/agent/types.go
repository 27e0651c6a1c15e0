// Package agent runs the LLM agents that score leads and write proposals.
package agent

import (
	"context"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

// LeadInput is the lead data shown to the agents.
type LeadInput struct {
	ID             string
	CompanyName    string
	ContactName    string
	Email          string
	Website        string
	Industry       string
	CompanySize    string
	BusinessIssues []string
}

// InputFromLead copies the prompt-relevant fields from a lead.
func InputFromLead(lead domain.Lead) LeadInput {
	return LeadInput{
		ID:             lead.ID,
		CompanyName:    lead.DisplayName(),
		ContactName:    deref(lead.ContactName),
		Email:          lead.EmailAddress(),
		Website:        deref(lead.Website),
		Industry:       deref(lead.Industry),
		CompanySize:    deref(lead.CompanySize),
		BusinessIssues: lead.BusinessIssues,
	}
}

// Assessment is the qualifier's verdict after normalisation.
type Assessment struct {
	Score                domain.Scores              `json:"score"`
	RecommendedTier      domain.Tier                `json:"recommended_tier"`
	AutomatableProcesses []string                   `json:"automatable_processes"`
	QualificationStatus  domain.QualificationStatus `json:"qualification_status"`
	Reasoning            string                     `json:"reasoning"`
	SuggestedTemplates   []string                   `json:"suggested_templates"`
}

// Blueprint returns the solution blueprint stored on the lead.
func (a Assessment) Blueprint() domain.Blueprint {
	return domain.Blueprint{
		AutomatableProcesses: a.AutomatableProcesses,
		SuggestedTemplates:   a.SuggestedTemplates,
		Reasoning:            a.Reasoning,
	}
}

// ProposalSection maps one pain point to an automation.
type ProposalSection struct {
	PainPoint           string  `json:"pain_point"`
	AutomationSolution  string  `json:"automation_solution"`
	TemplateName        *string `json:"template_name"`
	ExpectedTimeSavings string  `json:"expected_time_savings"`
	ExpectedCostSavings string  `json:"expected_cost_savings"`
}

// Proposal is the generated business proposal for a qualified lead.
type Proposal struct {
	ExecutiveSummary       string            `json:"executive_summary"`
	RecommendedTier        domain.Tier       `json:"recommended_tier"`
	MonthlyPrice           float64           `json:"monthly_price"`
	Sections               []ProposalSection `json:"sections"`
	ImplementationTimeline string            `json:"implementation_timeline"`
	TotalEstimatedSavings  string            `json:"total_estimated_savings"`
	NextSteps              []string          `json:"next_steps"`
}

// Qualifier scores a lead.
type Qualifier interface {
	Qualify(ctx context.Context, lead LeadInput) (Assessment, error)
}

// ProposalGenerator writes a proposal for a qualified lead.
type ProposalGenerator interface {
	Generate(ctx context.Context, lead LeadInput, assessment Assessment) (Proposal, error)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
