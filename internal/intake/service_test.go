package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/leadstest"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

const testPhone = "+27123456789"

type sentMessage struct {
	to   string
	body string
}

type testSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *testSender) SendText(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, body: body})
	return s.err
}

type testTrigger struct {
	leadIDs []string
	err     error
}

func (t *testTrigger) TriggerQualification(_ context.Context, leadID string) error {
	t.leadIDs = append(t.leadIDs, leadID)
	return t.err
}

func newTestService() (*Service, *leadstest.Store, *leadstest.ActivityLog, *testSender, *testTrigger) {
	store := leadstest.NewStore()
	log := &leadstest.ActivityLog{}
	sender := &testSender{}
	trigger := &testTrigger{}
	svc := NewService(store, log, sender, logger.New("test"))
	svc.SetQualificationTrigger(trigger)
	return svc, store, log, sender, trigger
}

func TestHandleMessageEndToEndScenario(t *testing.T) {
	svc, store, log, sender, _ := newTestService()
	ctx := context.Background()

	reply, err := svc.HandleMessage(ctx, testPhone, "Hello", "msg-1")
	if err != nil {
		t.Fatalf("first message: %v", err)
	}
	if !strings.Contains(reply, "Welcome to DraggonnB") {
		t.Fatalf("expected welcome reply, got %q", reply)
	}
	if store.Count() != 1 {
		t.Fatalf("expected exactly one lead, got %d", store.Count())
	}
	lead, err := store.FindLatestByPhone(ctx, testPhone)
	if err != nil {
		t.Fatalf("lookup lead: %v", err)
	}
	if lead.ConversationState != domain.StateStarted {
		t.Fatalf("expected state started, got %s", lead.ConversationState)
	}
	if log.Count(activity.EventWhatsAppIntakeStarted) != 1 {
		t.Fatal("expected intake started activity")
	}

	if _, err := svc.HandleMessage(ctx, testPhone, "My Cool Business", "msg-2"); err != nil {
		t.Fatalf("second message: %v", err)
	}
	lead, _ = store.GetByID(ctx, lead.ID)
	if lead.BusinessName == nil || *lead.BusinessName != "My Cool Business" {
		t.Fatalf("expected business name to be stored, got %v", lead.BusinessName)
	}
	if lead.ConversationState != domain.StateBusinessName {
		t.Fatalf("expected state business_name, got %s", lead.ConversationState)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected one reply per message, got %d", len(sender.sent))
	}
	if sender.sent[1].to != testPhone {
		t.Fatalf("reply sent to %q", sender.sent[1].to)
	}
}

func TestHandleMessageCompletesAndTriggersQualification(t *testing.T) {
	svc, store, _, sender, trigger := newTestService()
	ctx := context.Background()

	messages := []string{"Hello", "My Cool Business", "no", "owner@example.com", "invoicing, follow ups", "Retail"}
	for i, text := range messages {
		if _, err := svc.HandleMessage(ctx, testPhone, text, "msg"); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	lead, _ := store.FindLatestByPhone(ctx, testPhone)
	if lead.ConversationState != domain.StateComplete {
		t.Fatalf("expected complete, got %s", lead.ConversationState)
	}
	if lead.Website != nil {
		t.Fatalf("expected no website, got %q", *lead.Website)
	}
	if lead.Industry == nil || *lead.Industry != "Retail" {
		t.Fatal("expected industry to be stored")
	}
	if len(lead.BusinessIssues) != 2 {
		t.Fatalf("expected two issues, got %v", lead.BusinessIssues)
	}
	if len(sender.sent) != len(messages) {
		t.Fatalf("expected %d replies, got %d", len(messages), len(sender.sent))
	}
	if last := sender.sent[len(sender.sent)-1].body; last != CompletedMessage {
		t.Fatalf("expected closing acknowledgement, got %q", last)
	}
	if len(trigger.leadIDs) != 1 || trigger.leadIDs[0] != lead.ID {
		t.Fatalf("expected one qualification trigger for %s, got %v", lead.ID, trigger.leadIDs)
	}
}

func TestHandleMessageCompletedLeadIsIdempotent(t *testing.T) {
	svc, store, log, sender, trigger := newTestService()
	lead := leadstest.Lead("lead-complete", domain.StatusQualified)
	store.Put(lead)
	before, _ := store.Get(lead.ID)

	reply, err := svc.HandleMessage(context.Background(), testPhone, "Hello?", "msg-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != AlreadyReceivedMessage {
		t.Fatalf("expected already-received reply, got %q", reply)
	}

	after, _ := store.Get(lead.ID)
	if after.ConversationState != before.ConversationState || *after.BusinessName != *before.BusinessName ||
		after.QualificationStatus != before.QualificationStatus {
		t.Fatal("completed lead must not be mutated")
	}
	if len(log.Entries()) != 0 || len(trigger.leadIDs) != 0 {
		t.Fatal("completed lead must not log activity or re-trigger qualification")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(sender.sent))
	}
}

func TestHandleMessageLostRaceAnswersForCurrentState(t *testing.T) {
	svc, store, _, sender, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.HandleMessage(ctx, testPhone, "Hello", "msg-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	lead, _ := store.FindLatestByPhone(ctx, testPhone)

	store.BeforeAdvance = func(id string) {
		store.BeforeAdvance = nil
		name := "Winner Business"
		if err := store.AdvanceConversation(ctx, id, domain.StateStarted, domain.StateBusinessName, domain.FieldUpdate{BusinessName: &name}); err != nil {
			t.Errorf("concurrent advance: %v", err)
		}
	}

	reply, err := svc.HandleMessage(ctx, testPhone, "Loser Business", "msg-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != websiteQuestion {
		t.Fatalf("expected the website question for the current state, got %q", reply)
	}

	current, _ := store.Get(lead.ID)
	if *current.BusinessName != "Winner Business" || current.ConversationState != domain.StateBusinessName {
		t.Fatalf("loser must not overwrite or skip state, got %+v", current)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected one reply per message, got %d", len(sender.sent))
	}
}

func TestHandleMessageEmptyTextRepeatsQuestion(t *testing.T) {
	svc, store, log, sender, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.HandleMessage(ctx, testPhone, "Hello", "msg-1")

	reply, err := svc.HandleMessage(ctx, testPhone, "<b> </b>", "msg-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != WelcomeMessage {
		t.Fatalf("expected the business name question again, got %q", reply)
	}
	lead, _ := store.FindLatestByPhone(ctx, testPhone)
	if lead.ConversationState != domain.StateStarted {
		t.Fatalf("expected state to stay started, got %s", lead.ConversationState)
	}
	if log.Count(activity.EventWhatsAppMessage) != 0 {
		t.Fatal("empty answer must not be logged as a received answer")
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected one reply per message, got %d", len(sender.sent))
	}
}

func TestHandleMessageTriggerFailureIsNotReturned(t *testing.T) {
	svc, store, _, _, trigger := newTestService()
	trigger.err = errors.New("redis down")
	lead := leadstest.Lead("lead-issues", domain.StatusPending)
	lead.ConversationState = domain.StateIssues
	store.Put(lead)

	if _, err := svc.HandleMessage(context.Background(), testPhone, "Retail", "msg"); err != nil {
		t.Fatalf("trigger failure must not surface, got %v", err)
	}
	if len(trigger.leadIDs) != 1 {
		t.Fatal("expected trigger to be attempted")
	}
}

func TestHandleMessageReturnsSendFailure(t *testing.T) {
	svc, _, _, sender, _ := newTestService()
	sender.err = errors.New("whatsapp unavailable")

	if _, err := svc.HandleMessage(context.Background(), testPhone, "Hello", "msg"); err == nil {
		t.Fatal("expected send failure to be returned")
	}
}

func TestHandleMessageCompletionTriggersEvenWhenReplyFails(t *testing.T) {
	svc, store, _, sender, trigger := newTestService()
	ctx := context.Background()

	for i, text := range []string{"Hello", "My Cool Business", "no", "owner@example.com", "invoicing"} {
		if _, err := svc.HandleMessage(ctx, testPhone, text, "msg"); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	sender.err = errors.New("whatsapp down")
	if _, err := svc.HandleMessage(ctx, testPhone, "Retail", "msg-final"); err == nil {
		t.Fatal("expected the send failure to be returned")
	}

	lead, _ := store.FindLatestByPhone(ctx, testPhone)
	if lead.ConversationState != domain.StateComplete {
		t.Fatalf("expected complete, got %s", lead.ConversationState)
	}
	if len(trigger.leadIDs) != 1 || trigger.leadIDs[0] != lead.ID {
		t.Fatalf("expected qualification to be triggered for %s, got %v", lead.ID, trigger.leadIDs)
	}
}

type quickReplySender struct {
	testSender
	quick  []sentMessage
	titles [][]string
}

func (s *quickReplySender) SendQuickReplies(_ context.Context, to, body string, titles []string) error {
	s.quick = append(s.quick, sentMessage{to: to, body: body})
	s.titles = append(s.titles, titles)
	return nil
}

func TestHandleMessageOffersNoWebsiteButton(t *testing.T) {
	store := leadstest.NewStore()
	sender := &quickReplySender{}
	svc := NewService(store, &leadstest.ActivityLog{}, sender, logger.New("test"))
	ctx := context.Background()

	for i, text := range []string{"Hello", "My Cool Business"} {
		if _, err := svc.HandleMessage(ctx, testPhone, text, "msg"); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	if len(sender.quick) != 1 || sender.quick[0].body != websiteQuestion {
		t.Fatalf("expected the website question with buttons, got %+v", sender.quick)
	}
	if len(sender.titles[0]) != 1 || sender.titles[0][0] != "No" {
		t.Fatalf("unexpected button titles %v", sender.titles)
	}
	if len(sender.sent) != 1 || sender.sent[0].body != WelcomeMessage {
		t.Fatalf("expected other replies as plain text, got %+v", sender.sent)
	}

	// A tapped button arrives as its title.
	if _, err := svc.HandleMessage(ctx, testPhone, "No", "msg"); err != nil {
		t.Fatalf("button answer: %v", err)
	}
	lead, _ := store.FindLatestByPhone(ctx, testPhone)
	if lead.ConversationState != domain.StateWebsite || lead.Website != nil {
		t.Fatalf("expected website skipped, got state %s website %v", lead.ConversationState, lead.Website)
	}
}
