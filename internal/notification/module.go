// Package notification provides event handlers for sending notifications
// (operator Telegram summaries and lead emails) in response to domain events.
// This module subscribes to events and inverts the dependency: the qualification
// module never needs to know about Telegram or SMTP.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/email"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/events"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/telegram"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

// LeadReader loads the lead behind an event.
type LeadReader interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
}

// OperatorNotifier posts the lead summary to the operator chat.
type OperatorNotifier interface {
	SendLeadSummary(ctx context.Context, summary telegram.LeadSummary) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	leads    LeadReader
	operator OperatorNotifier
	sender   email.Sender
	cfg      config.InternalAPIConfig
	log      *logger.Logger
}

// New creates the notification module. A nil sender disables lead emails.
func New(leads LeadReader, operator OperatorNotifier, sender email.Sender, cfg config.InternalAPIConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		leads:    leads,
		operator: operator,
		sender:   sender,
		cfg:      cfg,
		log:      log,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Subscriber) {
	bus.Subscribe(events.LeadQualified{}.EventName(), m)
	bus.Subscribe(events.LeadDisqualified{}.EventName(), m)
	bus.Subscribe(events.ProposalGenerated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadQualified:
		return m.handleLeadQualified(ctx, e)
	case events.LeadDisqualified:
		m.log.WithLeadID(e.LeadID).Info("lead disqualified", "overall", e.Overall)
		return nil
	case events.ProposalGenerated:
		return m.handleProposalGenerated(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadQualified(ctx context.Context, e events.LeadQualified) error {
	if m.operator == nil {
		return nil
	}
	lead, err := m.leads.GetByID(ctx, e.LeadID)
	if err != nil {
		return fmt.Errorf("load qualified lead %s: %w", e.LeadID, err)
	}
	if err := m.operator.SendLeadSummary(ctx, telegram.SummaryFromLead(lead)); err != nil {
		return fmt.Errorf("send lead summary %s: %w", e.LeadID, err)
	}
	m.log.WithLeadID(e.LeadID).Info("operator notified of qualified lead", "overall", e.Overall, "tier", e.Tier)
	return nil
}

func (m *Module) handleProposalGenerated(ctx context.Context, e events.ProposalGenerated) error {
	log := m.log.WithLeadID(e.LeadID)
	to := strings.TrimSpace(e.Email)
	if to == "" {
		log.Info("proposal generated for lead without email")
		return nil
	}

	msg := email.ProposalEmail{
		To:               to,
		BusinessName:     e.BusinessName,
		ExecutiveSummary: e.ExecutiveSummary,
		RecommendedTier:  e.RecommendedTier,
		MonthlyPrice:     e.MonthlyPrice,
		NextSteps:        e.NextSteps,
		ProposalURL:      m.proposalURL(e.LeadID),
	}
	if err := m.sender.SendProposalEmail(ctx, msg); err != nil {
		return fmt.Errorf("send proposal email %s: %w", e.LeadID, err)
	}
	log.Info("proposal emailed", "sessionId", e.SessionID)
	return nil
}

func (m *Module) proposalURL(leadID string) string {
	if m.cfg == nil {
		return ""
	}
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + "/api/v1/leads/" + leadID + "/proposal"
}
