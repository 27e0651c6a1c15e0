package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

var (
	ErrEmptyResponse  = errors.New("agent returned an empty response")
	ErrMissingFields  = errors.New("agent response is missing required fields")
	leadingFenceRegex = regexp.MustCompile("^```(?:json)?\\s*")
	trailingFence     = regexp.MustCompile("\\s*```$")
)

var defaultNextSteps = []string{
	"Review this proposal",
	"Select your plan",
	"Your AI-powered solution goes live within 72 hours",
}

// StripCodeFences removes a surrounding markdown code fence.
func StripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = leadingFenceRegex.ReplaceAllString(cleaned, "")
		cleaned = trailingFence.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

type rawAssessment struct {
	Score *struct {
		Fit     float64 `json:"fit"`
		Urgency float64 `json:"urgency"`
		Size    float64 `json:"size"`
	} `json:"score"`
	RecommendedTier      string   `json:"recommended_tier"`
	AutomatableProcesses []string `json:"automatable_processes"`
	QualificationStatus  string   `json:"qualification_status"`
	Reasoning            string   `json:"reasoning"`
	SuggestedTemplates   []string `json:"suggested_templates"`
}

// ParseAssessment validates the qualifier output. Scores are clamped, the
// overall is recomputed and the status follows the threshold, whatever the
// model claimed.
func ParseAssessment(raw string) (Assessment, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return Assessment{}, ErrEmptyResponse
	}

	var parsed rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Assessment{}, fmt.Errorf("decode qualification response: %w", err)
	}
	if parsed.Score == nil || strings.TrimSpace(parsed.RecommendedTier) == "" || strings.TrimSpace(parsed.QualificationStatus) == "" {
		return Assessment{}, ErrMissingFields
	}

	score := domain.NewScores(parsed.Score.Fit, parsed.Score.Urgency, parsed.Score.Size)
	status := domain.StatusDisqualified
	if score.IsQualified() {
		status = domain.StatusQualified
	}

	return Assessment{
		Score:                score,
		RecommendedTier:      domain.NormalizeTier(parsed.RecommendedTier),
		AutomatableProcesses: nonNil(parsed.AutomatableProcesses),
		QualificationStatus:  status,
		Reasoning:            strings.TrimSpace(parsed.Reasoning),
		SuggestedTemplates:   nonNil(parsed.SuggestedTemplates),
	}, nil
}

type rawProposal struct {
	ExecutiveSummary       string            `json:"executive_summary"`
	RecommendedTier        string            `json:"recommended_tier"`
	MonthlyPrice           float64           `json:"monthly_price"`
	Sections               []rawProposalPart `json:"sections"`
	ImplementationTimeline string            `json:"implementation_timeline"`
	TotalEstimatedSavings  string            `json:"total_estimated_savings"`
	NextSteps              []string          `json:"next_steps"`
}

type rawProposalPart struct {
	PainPoint           string `json:"pain_point"`
	AutomationSolution  string `json:"automation_solution"`
	TemplateName        string `json:"template_name"`
	ExpectedTimeSavings string `json:"expected_time_savings"`
	ExpectedCostSavings string `json:"expected_cost_savings"`
}

// ParseProposal validates the proposal output and fills defaults. A known
// tier always carries its list price.
func ParseProposal(raw string) (Proposal, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return Proposal{}, ErrEmptyResponse
	}

	var parsed rawProposal
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Proposal{}, fmt.Errorf("decode proposal response: %w", err)
	}
	if strings.TrimSpace(parsed.ExecutiveSummary) == "" || strings.TrimSpace(parsed.RecommendedTier) == "" || parsed.Sections == nil {
		return Proposal{}, ErrMissingFields
	}

	proposal := Proposal{
		ExecutiveSummary:       strings.TrimSpace(parsed.ExecutiveSummary),
		MonthlyPrice:           parsed.MonthlyPrice,
		Sections:               make([]ProposalSection, 0, len(parsed.Sections)),
		ImplementationTimeline: orDefault(parsed.ImplementationTimeline, "72 hours"),
		TotalEstimatedSavings:  orDefault(parsed.TotalEstimatedSavings, "Significant"),
		NextSteps:              parsed.NextSteps,
	}
	if tier, ok := domain.ParseTier(parsed.RecommendedTier); ok {
		proposal.RecommendedTier = tier
		proposal.MonthlyPrice = float64(tier.MonthlyPriceZAR())
	} else {
		proposal.RecommendedTier = domain.NormalizeTier(parsed.RecommendedTier)
	}
	if len(proposal.NextSteps) == 0 {
		proposal.NextSteps = append([]string(nil), defaultNextSteps...)
	}

	for _, part := range parsed.Sections {
		section := ProposalSection{
			PainPoint:           part.PainPoint,
			AutomationSolution:  part.AutomationSolution,
			ExpectedTimeSavings: orDefault(part.ExpectedTimeSavings, "TBD"),
			ExpectedCostSavings: orDefault(part.ExpectedCostSavings, "TBD"),
		}
		if name := strings.TrimSpace(part.TemplateName); name != "" {
			section.TemplateName = &name
		}
		proposal.Sections = append(proposal.Sections, section)
	}
	return proposal, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
