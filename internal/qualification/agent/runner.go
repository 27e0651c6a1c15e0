package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// promptRunner owns one llmagent and its in-memory session service. Every
// call gets a fresh session that is deleted afterwards.
type promptRunner struct {
	appName        string
	runner         *runner.Runner
	sessionService session.Service
}

func newPromptRunner(appName, description, instruction string, llm model.LLM) (*promptRunner, error) {
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        appName,
		Model:       llm,
		Description: description,
		Instruction: instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s agent: %w", appName, err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s runner: %w", appName, err)
	}

	return &promptRunner{
		appName:        appName,
		runner:         r,
		sessionService: sessionService,
	}, nil
}

// run sends prompt as a single user turn and returns the concatenated text.
func (p *promptRunner) run(ctx context.Context, userID, prompt string) (string, error) {
	sessionID := uuid.NewString()
	if _, err := p.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   p.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		_ = p.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   p.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var output strings.Builder
	for event, err := range p.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return "", fmt.Errorf("%s run failed: %w", p.appName, err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part != nil {
				output.WriteString(part.Text)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return output.String(), nil
}
