// Package intake runs the WhatsApp lead-intake conversation: one question per
// inbound message until the lead has told us enough to be qualified.
package intake

import (
	"errors"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

const (
	WelcomeMessage = "Hey there! Welcome to DraggonnB. I'm here to understand your business and see how we can help automate your growth.\n\nWhat's your business name?"

	websiteQuestion  = "Great! Do you have a website? (If not, just type 'no')"
	emailQuestion    = "What's the best email address to reach you at?"
	issuesQuestion   = "Now tell me: what are the biggest challenges or pain points in your business right now? (List as many as you like, separated by commas)"
	industryQuestion = "Last question: what industry are you in?"

	CompletedMessage       = "Your information has been submitted! Our team will review it shortly and get back to you."
	AlreadyReceivedMessage = "We've already received your information! Our team is reviewing it. We'll be in touch soon."
)

const noWebsiteAnswer = "No"

// ErrUnknownState is returned for a conversation_state outside the closed set.
var ErrUnknownState = errors.New("unknown conversation state")

// Step is the outcome of applying one inbound message to a conversation.
type Step struct {
	Next   domain.ConversationState
	Update domain.FieldUpdate
	Reply  string
	// Unchanged is set when nothing is persisted: empty answers and completed leads.
	Unchanged bool
}

// Completes reports whether this step closes the intake.
func (s Step) Completes() bool {
	return !s.Unchanged && s.Next == domain.StateComplete
}

// QuickReplies returns the answers offered as buttons with question, if any.
// Each title is itself a valid answer to the question.
func QuickReplies(question string) []string {
	if question == websiteQuestion {
		return []string{noWebsiteAnswer}
	}
	return nil
}

// QuestionFor is the prompt a lead in state has most recently been sent.
func QuestionFor(state domain.ConversationState) string {
	switch state {
	case domain.StateStarted:
		return WelcomeMessage
	case domain.StateBusinessName:
		return websiteQuestion
	case domain.StateWebsite:
		return emailQuestion
	case domain.StateEmail:
		return issuesQuestion
	case domain.StateIssues, domain.StateIndustry:
		return industryQuestion
	case domain.StateComplete:
		return AlreadyReceivedMessage
	}
	return ""
}

// Transition maps (state, answer) to the next state, the field it fills and
// the single reply. It performs no I/O.
func Transition(state domain.ConversationState, input string) (Step, error) {
	if !state.Valid() {
		return Step{}, ErrUnknownState
	}
	if state.IsTerminal() {
		return Step{Next: state, Reply: AlreadyReceivedMessage, Unchanged: true}, nil
	}

	answer := strings.TrimSpace(input)
	if answer == "" {
		return repeat(state), nil
	}

	switch state {
	case domain.StateStarted:
		return Step{
			Next:   domain.StateBusinessName,
			Update: domain.FieldUpdate{BusinessName: &answer},
			Reply:  websiteQuestion,
		}, nil
	case domain.StateBusinessName:
		update := domain.FieldUpdate{Website: &answer}
		if strings.EqualFold(answer, noWebsiteAnswer) {
			update = domain.FieldUpdate{ClearWebsite: true}
		}
		return Step{Next: domain.StateWebsite, Update: update, Reply: emailQuestion}, nil
	case domain.StateWebsite:
		return Step{
			Next:   domain.StateEmail,
			Update: domain.FieldUpdate{Email: &answer},
			Reply:  issuesQuestion,
		}, nil
	case domain.StateEmail:
		issues := SplitIssues(answer)
		if len(issues) == 0 {
			return repeat(state), nil
		}
		return Step{
			Next:   domain.StateIssues,
			Update: domain.FieldUpdate{BusinessIssues: issues},
			Reply:  industryQuestion,
		}, nil
	case domain.StateIssues, domain.StateIndustry:
		return Step{
			Next:   domain.StateComplete,
			Update: domain.FieldUpdate{Industry: &answer},
			Reply:  CompletedMessage,
		}, nil
	}

	return Step{}, ErrUnknownState
}

// SplitIssues splits a comma-separated answer, dropping blanks.
func SplitIssues(answer string) []string {
	parts := strings.Split(answer, ",")
	issues := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			issues = append(issues, trimmed)
		}
	}
	return issues
}

func repeat(state domain.ConversationState) Step {
	return Step{Next: state, Reply: QuestionFor(state), Unchanged: true}
}
