package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/phone"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/sanitize"
)

const maxAnswerRunes = 1000

// LeadStore is the lead persistence the intake conversation needs.
type LeadStore interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	FindLatestByPhone(ctx context.Context, phone string) (domain.Lead, error)
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	AdvanceConversation(ctx context.Context, id string, expected, next domain.ConversationState, update domain.FieldUpdate) error
}

// TextSender delivers a reply to the lead's WhatsApp number.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// QuickReplySender is implemented by senders that can offer reply buttons.
// Replies with quick answers fall back to SendText when the sender lacks it.
type QuickReplySender interface {
	SendQuickReplies(ctx context.Context, to, body string, titles []string) error
}

// QualificationTrigger starts qualification without waiting for it.
type QualificationTrigger interface {
	TriggerQualification(ctx context.Context, leadID string) error
}

type Service struct {
	leads    LeadStore
	activity activity.Writer
	sender   TextSender
	trigger  QualificationTrigger
	log      *logger.Logger
}

func NewService(leads LeadStore, activityWriter activity.Writer, sender TextSender, log *logger.Logger) *Service {
	return &Service{
		leads:    leads,
		activity: activityWriter,
		sender:   sender,
		log:      log,
	}
}

// SetQualificationTrigger wires the qualification kickoff after intake completes.
func (s *Service) SetQualificationTrigger(trigger QualificationTrigger) {
	s.trigger = trigger
}

// HandleMessage applies one inbound message and sends exactly one reply.
// The returned reply is the text that was sent.
func (s *Service) HandleMessage(ctx context.Context, rawPhone, text, messageID string) (string, error) {
	number := phone.NormalizeE164(rawPhone)
	if number == "" {
		return "", fmt.Errorf("intake: empty phone number")
	}
	answer := sanitize.Truncate(sanitize.Text(text), maxAnswerRunes)

	lead, err := s.leads.FindLatestByPhone(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return s.start(ctx, number, messageID)
	}
	if err != nil {
		return "", fmt.Errorf("load lead: %w", err)
	}

	log := s.log.WithLeadID(lead.ID)

	step, err := Transition(lead.ConversationState, answer)
	if err != nil {
		return "", fmt.Errorf("lead %s: %w", lead.ID, err)
	}
	if step.Unchanged {
		return step.Reply, s.reply(ctx, number, step.Reply)
	}

	err = s.leads.AdvanceConversation(ctx, lead.ID, lead.ConversationState, step.Next, step.Update)
	if errors.Is(err, domain.ErrConversationConflict) {
		// Another delivery advanced the lead first; answer for where it is now.
		current, getErr := s.leads.GetByID(ctx, lead.ID)
		if getErr != nil {
			return "", fmt.Errorf("reload lead after conflict: %w", getErr)
		}
		log.Warn("intake state advanced concurrently",
			"expected_state", lead.ConversationState,
			"current_state", current.ConversationState,
			"message_id", messageID)
		reply := QuestionFor(current.ConversationState)
		return reply, s.reply(ctx, number, reply)
	}
	if err != nil {
		return "", fmt.Errorf("advance conversation: %w", err)
	}

	s.record(ctx, activity.Entry{
		EventType: activity.EventWhatsAppMessage,
		LeadID:    lead.ID,
		Details: map[string]interface{}{
			"state":      string(lead.ConversationState),
			"next_state": string(step.Next),
			"message_id": messageID,
		},
	})

	// Completion is already persisted, so qualification must not depend on the reply.
	if step.Completes() {
		s.triggerQualification(ctx, lead.ID)
	}

	if err := s.reply(ctx, number, step.Reply); err != nil {
		return step.Reply, err
	}
	return step.Reply, nil
}

func (s *Service) start(ctx context.Context, number, messageID string) (string, error) {
	lead, err := s.leads.Create(ctx, repository.CreateLeadParams{
		PhoneNumber:       &number,
		Source:            domain.SourceWhatsApp,
		ConversationState: domain.StateStarted,
	})
	if err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}

	s.log.Info("whatsapp intake started", "lead_id", lead.ID, "message_id", messageID)
	s.record(ctx, activity.Entry{
		EventType: activity.EventWhatsAppIntakeStarted,
		LeadID:    lead.ID,
		Details:   map[string]interface{}{"phone": number, "message_id": messageID},
	})

	return WelcomeMessage, s.reply(ctx, number, WelcomeMessage)
}

func (s *Service) reply(ctx context.Context, to, body string) error {
	if s.sender == nil {
		return nil
	}
	var err error
	quick, ok := s.sender.(QuickReplySender)
	if titles := QuickReplies(body); ok && len(titles) > 0 {
		err = quick.SendQuickReplies(ctx, to, body, titles)
	} else {
		err = s.sender.SendText(ctx, to, body)
	}
	if err != nil {
		s.log.Error("failed to send intake reply", "error", err)
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.log.Error("failed to record intake activity", "event_type", entry.EventType, "lead_id", entry.LeadID, "error", err)
	}
}

func (s *Service) triggerQualification(ctx context.Context, leadID string) {
	if s.trigger == nil {
		s.log.Warn("qualification trigger not configured", "lead_id", leadID)
		return
	}
	if err := s.trigger.TriggerQualification(context.WithoutCancel(ctx), leadID); err != nil {
		s.log.Error("failed to trigger qualification", "lead_id", leadID, "error", err)
	}
}
