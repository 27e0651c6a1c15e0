package intake

import (
	"reflect"
	"testing"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

func TestTransitionAdvancesOneStateAtATime(t *testing.T) {
	cases := []struct {
		state domain.ConversationState
		input string
		next  domain.ConversationState
		reply string
	}{
		{domain.StateStarted, "My Cool Business", domain.StateBusinessName, websiteQuestion},
		{domain.StateBusinessName, "https://cool.example", domain.StateWebsite, emailQuestion},
		{domain.StateWebsite, "owner@cool.example", domain.StateEmail, issuesQuestion},
		{domain.StateEmail, "invoicing, follow ups", domain.StateIssues, industryQuestion},
		{domain.StateIssues, "Retail", domain.StateComplete, CompletedMessage},
		{domain.StateIndustry, "Retail", domain.StateComplete, CompletedMessage},
	}

	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			step, err := Transition(tc.state, tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if step.Next != tc.next {
				t.Fatalf("expected next state %s, got %s", tc.next, step.Next)
			}
			if step.Reply != tc.reply {
				t.Fatalf("unexpected reply %q", step.Reply)
			}
			if step.Unchanged {
				t.Fatal("expected a persisted step")
			}
		})
	}
}

func TestTransitionFieldMapping(t *testing.T) {
	step, _ := Transition(domain.StateStarted, "  My Cool Business  ")
	if step.Update.BusinessName == nil || *step.Update.BusinessName != "My Cool Business" {
		t.Fatalf("expected trimmed business name, got %+v", step.Update)
	}

	step, _ = Transition(domain.StateBusinessName, "No")
	if !step.Update.ClearWebsite || step.Update.Website != nil {
		t.Fatalf("expected 'No' to clear the website, got %+v", step.Update)
	}

	step, _ = Transition(domain.StateEmail, "slow invoicing, , missed leads ,")
	if want := []string{"slow invoicing", "missed leads"}; !reflect.DeepEqual(step.Update.BusinessIssues, want) {
		t.Fatalf("expected issues %v, got %v", want, step.Update.BusinessIssues)
	}

	step, _ = Transition(domain.StateIssues, "Retail")
	if step.Update.Industry == nil || *step.Update.Industry != "Retail" || !step.Completes() {
		t.Fatalf("expected industry and completion, got %+v", step)
	}
}

func TestTransitionEmptyInputRepeatsQuestion(t *testing.T) {
	for _, state := range domain.ConversationStates {
		if state.IsTerminal() {
			continue
		}
		step, err := Transition(state, "   ")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", state, err)
		}
		if !step.Unchanged || step.Next != state {
			t.Fatalf("%s: expected no advance, got %+v", state, step)
		}
		if step.Reply != QuestionFor(state) || step.Reply == "" {
			t.Fatalf("%s: expected the current question again, got %q", state, step.Reply)
		}
	}

	step, _ := Transition(domain.StateEmail, " , ,")
	if !step.Unchanged {
		t.Fatal("issues answer with no entries should not advance")
	}
}

func TestTransitionCompleteIsIdempotent(t *testing.T) {
	step, err := Transition(domain.StateComplete, "Hello again")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !step.Unchanged || step.Reply != AlreadyReceivedMessage || !step.Update.IsEmpty() {
		t.Fatalf("expected already-received no-op, got %+v", step)
	}
}

func TestTransitionRejectsUnknownState(t *testing.T) {
	if _, err := Transition(domain.ConversationState("bogus"), "hi"); err != ErrUnknownState {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
}
