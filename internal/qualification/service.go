// Package qualification scores completed leads with the qualifier agent and
// writes proposals for the qualified ones.
package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/events"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification/agent"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/apperr"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

// DefaultTimeout bounds one qualifier or proposal call.
const DefaultTimeout = 60 * time.Second

// ErrQualificationFailed wraps every agent failure that sent the lead back to pending.
var ErrQualificationFailed = errors.New("qualification failed")

// LeadStore is the slice of the leads repository qualification needs.
type LeadStore interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.QualificationStatus) error
	SaveQualification(ctx context.Context, id string, outcome repository.QualificationOutcome) error
}

// ProposalTrigger starts proposal generation without waiting for it.
type ProposalTrigger interface {
	TriggerProposal(ctx context.Context, leadID string) error
}

// Result is the outcome of one Qualify call.
type Result struct {
	LeadID           string                     `json:"leadId"`
	Status           domain.QualificationStatus `json:"status"`
	AlreadyProcessed bool                       `json:"alreadyProcessed"`
	Assessment       *agent.Assessment          `json:"qualification,omitempty"`
}

type Service struct {
	leads     LeadStore
	sessions  SessionStore
	qualifier agent.Qualifier
	proposals agent.ProposalGenerator
	activity  activity.Writer
	bus       events.Bus
	archive   ProposalArchive
	trigger   ProposalTrigger
	timeout   time.Duration
	log       *logger.Logger
}

func NewService(leads LeadStore, sessions SessionStore, qualifier agent.Qualifier, proposals agent.ProposalGenerator, activityWriter activity.Writer, bus events.Bus, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		leads:     leads,
		sessions:  sessions,
		qualifier: qualifier,
		proposals: proposals,
		activity:  activityWriter,
		bus:       bus,
		timeout:   timeout,
		log:       log,
	}
}

// SetProposalTrigger wires proposal generation after a qualified verdict.
func (s *Service) SetProposalTrigger(trigger ProposalTrigger) {
	s.trigger = trigger
}

// SetArchive enables the object storage copy of generated proposals.
func (s *Service) SetArchive(archive ProposalArchive) {
	s.archive = archive
}

// Qualify runs the qualifier for a pending lead. Leads in any other status
// are reported as already processed and left untouched.
func (s *Service) Qualify(ctx context.Context, leadID string) (Result, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	if lead.QualificationStatus != domain.StatusPending {
		return alreadyProcessed(lead), nil
	}

	log := s.log.WithLeadID(lead.ID)

	err = s.leads.TransitionStatus(ctx, lead.ID, domain.StatusPending, domain.StatusQualifying)
	if errors.Is(err, domain.ErrStatusConflict) {
		current, getErr := s.getLead(ctx, lead.ID)
		if getErr != nil {
			return Result{}, getErr
		}
		log.Info("qualification already claimed", "status", current.QualificationStatus)
		return alreadyProcessed(current), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("claim lead for qualification: %w", err)
	}

	sessionID := s.startSession(ctx, AgentLeadQualifier, lead.ID)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	assessment, err := s.callQualifier(runCtx, agent.InputFromLead(lead))
	cancel()
	if err != nil {
		s.revert(ctx, lead.ID, sessionID, err)
		return Result{}, fmt.Errorf("%w: lead %s: %w", ErrQualificationFailed, lead.ID, err)
	}

	err = s.leads.SaveQualification(ctx, lead.ID, repository.QualificationOutcome{
		Status:    assessment.QualificationStatus,
		Scores:    assessment.Score,
		Tier:      assessment.RecommendedTier,
		Reasoning: assessment.Reasoning,
		Blueprint: assessment.Blueprint(),
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		// The reaper may have reverted the lead while the agent was running.
		s.failSession(ctx, sessionID, err.Error())
		return Result{}, fmt.Errorf("save qualification: %w", err)
	}
	if err != nil {
		s.revert(ctx, lead.ID, sessionID, err)
		return Result{}, fmt.Errorf("save qualification: %w", err)
	}
	s.completeSession(ctx, sessionID, assessment)

	log.Info("lead qualified",
		"status", assessment.QualificationStatus,
		"overall", assessment.Score.Overall,
		"tier", assessment.RecommendedTier)

	s.announce(ctx, lead.ID, assessment)

	if assessment.QualificationStatus == domain.StatusQualified {
		s.triggerProposal(ctx, lead.ID)
	}

	return Result{
		LeadID:     lead.ID,
		Status:     assessment.QualificationStatus,
		Assessment: &assessment,
	}, nil
}

// GenerateProposal writes and stores the proposal for a qualified lead. A
// lead that already has a completed proposal is skipped.
func (s *Service) GenerateProposal(ctx context.Context, leadID string) error {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.QualificationStatus != domain.StatusQualified && !lead.QualificationStatus.IsApprovedOrLater() {
		return apperr.BadRequest(fmt.Sprintf("Cannot generate a proposal for lead with status: %s", lead.QualificationStatus))
	}

	log := s.log.WithLeadID(lead.ID)

	if s.sessions != nil {
		if _, err := s.sessions.LatestCompleted(ctx, lead.ID, AgentProposalGenerator); err == nil {
			log.Info("proposal already generated")
			return nil
		} else if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	}
	if s.proposals == nil {
		return apperr.Unavailable("proposal generator is not configured")
	}

	sessionID := s.startSession(ctx, AgentProposalGenerator, lead.ID)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	proposal, err := s.proposals.Generate(runCtx, agent.InputFromLead(lead), AssessmentFromLead(lead))
	cancel()
	if err != nil {
		s.failSession(ctx, sessionID, err.Error())
		log.Error("proposal generation failed", "error", err)
		return fmt.Errorf("generate proposal: %w", err)
	}
	s.completeSession(ctx, sessionID, proposal)

	archiveKey := ""
	if s.archive != nil {
		key, err := s.archive.Archive(ctx, lead.ID, proposal)
		if err != nil {
			log.Error("failed to archive proposal", "error", err)
		} else {
			archiveKey = key
		}
	}

	s.record(ctx, activity.Entry{
		EventType: activity.EventProposalGenerated,
		LeadID:    lead.ID,
		Details: map[string]interface{}{
			"session_id":       sessionID,
			"recommended_tier": string(proposal.RecommendedTier),
			"archive_key":      archiveKey,
		},
	})

	if s.bus != nil {
		s.bus.Publish(ctx, events.ProposalGenerated{
			BaseEvent:        events.NewBaseEvent(),
			LeadID:           lead.ID,
			SessionID:        sessionID,
			Email:            lead.EmailAddress(),
			BusinessName:     lead.DisplayName(),
			ExecutiveSummary: proposal.ExecutiveSummary,
			RecommendedTier:  string(proposal.RecommendedTier),
			MonthlyPrice:     strconv.FormatFloat(proposal.MonthlyPrice, 'f', -1, 64),
			NextSteps:        proposal.NextSteps,
			ArchiveKey:       archiveKey,
		})
	}

	log.Info("proposal generated", "session_id", sessionID, "tier", proposal.RecommendedTier)
	return nil
}

// AssessmentFromLead rebuilds the stored qualifier verdict of a lead.
func AssessmentFromLead(lead domain.Lead) agent.Assessment {
	assessment := agent.Assessment{
		QualificationStatus:  lead.QualificationStatus,
		AutomatableProcesses: []string{},
		SuggestedTemplates:   []string{},
	}
	if lead.Scores != nil {
		assessment.Score = *lead.Scores
	}
	if lead.RecommendedTier != nil {
		assessment.RecommendedTier = *lead.RecommendedTier
	}
	if lead.Reasoning != nil {
		assessment.Reasoning = *lead.Reasoning
	}
	if lead.Blueprint != nil {
		if lead.Blueprint.AutomatableProcesses != nil {
			assessment.AutomatableProcesses = lead.Blueprint.AutomatableProcesses
		}
		if lead.Blueprint.SuggestedTemplates != nil {
			assessment.SuggestedTemplates = lead.Blueprint.SuggestedTemplates
		}
		if assessment.Reasoning == "" {
			assessment.Reasoning = lead.Blueprint.Reasoning
		}
	}
	return assessment
}

func (s *Service) getLead(ctx context.Context, leadID string) (domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "Failed to load lead", err).WithOp("load lead " + leadID)
	}
	return lead, nil
}

func (s *Service) callQualifier(ctx context.Context, input agent.LeadInput) (assessment agent.Assessment, err error) {
	if s.qualifier == nil {
		return agent.Assessment{}, errors.New("qualifier is not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("qualifier panic: %v", r)
		}
	}()
	return s.qualifier.Qualify(ctx, input)
}

// revert puts the lead back to pending so that a later trigger can retry it.
func (s *Service) revert(ctx context.Context, leadID, sessionID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithLeadID(leadID)

	log.Error("qualification failed", "error", cause)
	if err := s.leads.TransitionStatus(ctx, leadID, domain.StatusQualifying, domain.StatusPending); err != nil {
		log.Error("failed to revert lead to pending", "error", err)
	}
	s.failSession(ctx, sessionID, cause.Error())
	s.record(ctx, activity.Entry{
		EventType: activity.EventQualificationFailed,
		LeadID:    leadID,
		Details:   map[string]interface{}{"error": cause.Error()},
	})
}

func (s *Service) announce(ctx context.Context, leadID string, assessment agent.Assessment) {
	eventType := activity.EventLeadDisqualified
	if assessment.QualificationStatus == domain.StatusQualified {
		eventType = activity.EventLeadQualified
	}
	s.record(ctx, activity.Entry{
		EventType: eventType,
		LeadID:    leadID,
		Details: map[string]interface{}{
			"fit":              assessment.Score.Fit,
			"urgency":          assessment.Score.Urgency,
			"size":             assessment.Score.Size,
			"overall":          assessment.Score.Overall,
			"recommended_tier": string(assessment.RecommendedTier),
		},
	})

	if s.bus == nil {
		return
	}
	if assessment.QualificationStatus == domain.StatusQualified {
		s.bus.Publish(ctx, events.LeadQualified{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Overall:   assessment.Score.Overall,
			Tier:      string(assessment.RecommendedTier),
		})
		return
	}
	s.bus.Publish(ctx, events.LeadDisqualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Overall:   assessment.Score.Overall,
	})
}

func (s *Service) triggerProposal(ctx context.Context, leadID string) {
	if s.trigger == nil {
		s.log.Warn("proposal trigger not configured", "lead_id", leadID)
		return
	}
	if err := s.trigger.TriggerProposal(context.WithoutCancel(ctx), leadID); err != nil {
		s.log.Error("failed to trigger proposal generation", "lead_id", leadID, "error", err)
	}
}

func (s *Service) startSession(ctx context.Context, agentType, leadID string) string {
	if s.sessions == nil {
		return ""
	}
	session, err := s.sessions.Start(ctx, agentType, leadID)
	if err != nil {
		s.log.Error("failed to start agent session", "agent_type", agentType, "lead_id", leadID, "error", err)
		return ""
	}
	return session.ID
}

func (s *Service) completeSession(ctx context.Context, sessionID string, result interface{}) {
	if s.sessions == nil || sessionID == "" {
		return
	}
	if err := s.sessions.Complete(context.WithoutCancel(ctx), sessionID, result); err != nil {
		s.log.Error("failed to complete agent session", "session_id", sessionID, "error", err)
	}
}

func (s *Service) failSession(ctx context.Context, sessionID, message string) {
	if s.sessions == nil || sessionID == "" {
		return
	}
	if err := s.sessions.Fail(context.WithoutCancel(ctx), sessionID, message); err != nil {
		s.log.Error("failed to mark agent session failed", "session_id", sessionID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Error("failed to record qualification activity", "event_type", entry.EventType, "lead_id", entry.LeadID, "error", err)
	}
}

func alreadyProcessed(lead domain.Lead) Result {
	return Result{
		LeadID:           lead.ID,
		Status:           lead.QualificationStatus,
		AlreadyProcessed: true,
	}
}

// ProposalView is the public status of a lead's proposal.
type ProposalView struct {
	Success       bool               `json:"success"`
	Status        string             `json:"status"`
	Message       string             `json:"message,omitempty"`
	Proposal      json.RawMessage    `json:"proposal,omitempty"`
	Qualification *QualificationView `json:"qualification,omitempty"`
}

// QualificationView is the qualifier summary shown next to a proposal.
type QualificationView struct {
	Score             *domain.Scores    `json:"score"`
	RecommendedTier   *domain.Tier      `json:"recommended_tier"`
	SolutionBlueprint *domain.Blueprint `json:"solution_blueprint,omitempty"`
}

const (
	ProposalProcessing   = "processing"
	ProposalDisqualified = "disqualified"
	ProposalGenerating   = "generating"
	ProposalReady        = "ready"

	processingMessage   = "Your proposal is being generated. Please check back shortly."
	disqualifiedMessage = "Based on our analysis, we may not be the best fit right now. Our team will reach out if we can help."
	generatingMessage   = "Your proposal is being finalized. Please check back in a few minutes."
)

// Proposal reports where a lead's proposal stands.
func (s *Service) Proposal(ctx context.Context, leadID string) (ProposalView, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return ProposalView{}, err
	}

	switch lead.QualificationStatus {
	case domain.StatusPending, domain.StatusQualifying:
		return ProposalView{Success: true, Status: ProposalProcessing, Message: processingMessage}, nil
	case domain.StatusDisqualified:
		return ProposalView{Success: true, Status: ProposalDisqualified, Message: disqualifiedMessage}, nil
	}

	var session Session
	if s.sessions != nil {
		session, err = s.sessions.LatestCompleted(ctx, lead.ID, AgentProposalGenerator)
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return ProposalView{}, err
		}
	}
	if len(session.Result) == 0 {
		return ProposalView{
			Success: true,
			Status:  ProposalGenerating,
			Message: generatingMessage,
			Qualification: &QualificationView{
				Score:           lead.Scores,
				RecommendedTier: lead.RecommendedTier,
			},
		}, nil
	}

	return ProposalView{
		Success:  true,
		Status:   ProposalReady,
		Proposal: session.Result,
		Qualification: &QualificationView{
			Score:             lead.Scores,
			RecommendedTier:   lead.RecommendedTier,
			SolutionBlueprint: lead.Blueprint,
		},
	}, nil
}
