package agent

import (
	"context"
	"fmt"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/ai/openaicompat"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"

	"google.golang.org/adk/model"
)

// ADKQualifier scores leads with an llmagent.
type ADKQualifier struct {
	runner *promptRunner
}

func NewQualifier(llm model.LLM) (*ADKQualifier, error) {
	r, err := newPromptRunner("lead_qualifier", "Scores prospective clients and recommends a tier.", qualifierInstruction, llm)
	if err != nil {
		return nil, err
	}
	return &ADKQualifier{runner: r}, nil
}

func (q *ADKQualifier) Qualify(ctx context.Context, lead LeadInput) (Assessment, error) {
	output, err := q.runner.run(ctx, lead.ID, buildQualifierPrompt(lead))
	if err != nil {
		return Assessment{}, err
	}
	assessment, err := ParseAssessment(output)
	if err != nil {
		return Assessment{}, fmt.Errorf("qualifier output: %w", err)
	}
	return assessment, nil
}

var _ Qualifier = (*ADKQualifier)(nil)

// QualifierModel returns the JSON-mode model used for scoring.
func QualifierModel(cfg config.AgentConfig) model.LLM {
	temperature := 0.3
	return openaicompat.NewModel(openaicompat.Config{
		APIKey:      cfg.GetLLMAPIKey(),
		BaseURL:     cfg.GetLLMBaseURL(),
		Model:       cfg.GetLLMModel(),
		JSONMode:    true,
		Temperature: &temperature,
	})
}
