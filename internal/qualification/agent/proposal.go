package agent

import (
	"context"
	"fmt"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/ai/openaicompat"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"

	"google.golang.org/adk/model"
)

// ADKProposalGenerator writes proposals with an llmagent.
type ADKProposalGenerator struct {
	runner *promptRunner
}

func NewProposalGenerator(llm model.LLM) (*ADKProposalGenerator, error) {
	r, err := newPromptRunner("proposal_generator", "Writes business proposals for qualified leads.", proposalInstruction, llm)
	if err != nil {
		return nil, err
	}
	return &ADKProposalGenerator{runner: r}, nil
}

func (g *ADKProposalGenerator) Generate(ctx context.Context, lead LeadInput, assessment Assessment) (Proposal, error) {
	output, err := g.runner.run(ctx, lead.ID, buildProposalPrompt(lead, assessment))
	if err != nil {
		return Proposal{}, err
	}
	proposal, err := ParseProposal(output)
	if err != nil {
		return Proposal{}, fmt.Errorf("proposal output: %w", err)
	}
	return proposal, nil
}

var _ ProposalGenerator = (*ADKProposalGenerator)(nil)

// ProposalModel returns the JSON-mode model used for proposals.
func ProposalModel(cfg config.AgentConfig) model.LLM {
	temperature := 0.5
	return openaicompat.NewModel(openaicompat.Config{
		APIKey:      cfg.GetLLMAPIKey(),
		BaseURL:     cfg.GetLLMBaseURL(),
		Model:       cfg.GetLLMModel(),
		JSONMode:    true,
		Temperature: &temperature,
	})
}
