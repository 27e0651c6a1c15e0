// Package approval handles the operator's approve and reject decisions on
// qualified leads.
package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/apperr"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

// Callback answers shown to the operator.
const (
	AnswerInvalid         = "Invalid callback"
	AnswerUnknownAction   = "Unknown action"
	AnswerNotFound        = "Lead not found"
	AnswerAlreadyApproved = "Already approved"
	AnswerAlreadyRejected = "Already rejected"
	AnswerApproved        = "Approved! Provisioning started."
	AnswerRejected        = "Lead rejected"
	AnswerNotReadyApprove = "Lead not ready for approval"
	AnswerNotReadyReview  = "Lead not ready for review"
	AnswerFailed          = "Something went wrong, please try again"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"

	approvedByOperator = "telegram_operator"
	approvedByAdmin    = "internal_api"

	declineMessage = "Thanks for your interest in DraggonnB! At this time, we don't have a solution that fits your needs perfectly. We'll keep your info on file and reach out if that changes."
)

type LeadStore interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.QualificationStatus) error
}

// Provisioner runs a provisioning job for a lead already in provisioning.
type Provisioner interface {
	Run(ctx context.Context, lead domain.Lead, job provisioning.Job) error
}

type OperatorNotifier interface {
	SendMessage(ctx context.Context, text string) error
}

type CustomerMessenger interface {
	SendText(ctx context.Context, to, body string) error
}

type Service struct {
	leads       LeadStore
	jobs        provisioning.JobStore
	provisioner Provisioner
	activity    activity.Writer
	operator    OperatorNotifier
	customer    CustomerMessenger
	log         *logger.Logger
}

func NewService(leads LeadStore, jobs provisioning.JobStore, provisioner Provisioner, activityWriter activity.Writer, operator OperatorNotifier, customer CustomerMessenger, log *logger.Logger) *Service {
	return &Service{
		leads:       leads,
		jobs:        jobs,
		provisioner: provisioner,
		activity:    activityWriter,
		operator:    operator,
		customer:    customer,
		log:         log,
	}
}

// ParseCallback splits "action:leadId" on the first colon.
func ParseCallback(data string) (action, leadID string, ok bool) {
	action, leadID, found := strings.Cut(strings.TrimSpace(data), ":")
	if !found || action == "" || strings.TrimSpace(leadID) == "" {
		return "", "", false
	}
	return action, strings.TrimSpace(leadID), true
}

// HandleCallback applies an inline keyboard decision and returns the text to
// answer the callback with. It never fails; problems become answers.
func (s *Service) HandleCallback(ctx context.Context, data string) string {
	action, leadID, ok := ParseCallback(data)
	if !ok {
		return AnswerInvalid
	}
	if action != actionApprove && action != actionReject {
		return AnswerUnknownAction
	}

	ctx = logger.ContextWithLeadID(ctx, leadID)
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return AnswerNotFound
	}
	if err != nil {
		s.log.WithContext(ctx).Error("failed to load lead for callback", "error", err)
		return AnswerFailed
	}

	if lead.QualificationStatus.IsApprovedOrLater() {
		return AnswerAlreadyApproved
	}
	if lead.QualificationStatus == domain.StatusRejected {
		return AnswerAlreadyRejected
	}

	if action == actionApprove {
		return s.approve(ctx, lead)
	}
	return s.reject(ctx, lead)
}

func (s *Service) approve(ctx context.Context, lead domain.Lead) string {
	log := s.log.WithContext(ctx)

	if lead.QualificationStatus != domain.StatusQualified {
		return AnswerNotReadyApprove
	}
	if err := s.leads.TransitionStatus(ctx, lead.ID, domain.StatusQualified, domain.StatusApproved); err != nil {
		return s.lostRace(ctx, lead.ID, err)
	}

	job, err := s.jobs.Create(ctx, provisioning.CreateJobParams{LeadID: lead.ID, Tier: provisioning.TierFor(lead), Attempt: 1})
	if err != nil {
		if errors.Is(err, provisioning.ErrActiveJobExists) {
			return AnswerAlreadyApproved
		}
		log.Error("failed to create provisioning job", "error", err)
		return AnswerFailed
	}

	s.appendActivity(ctx, activity.Entry{
		EventType: activity.EventLeadApproved,
		LeadID:    lead.ID,
		JobID:     job.ID,
		Details: map[string]interface{}{
			"approved_by": approvedByOperator,
			"job_id":      job.ID,
		},
	})

	if err := s.leads.TransitionStatus(ctx, lead.ID, domain.StatusApproved, domain.StatusProvisioning); err != nil {
		log.Error("failed to move approved lead to provisioning", "job_id", job.ID, "error", err)
		if markErr := s.jobs.MarkFailed(ctx, job.ID, "lead status changed before provisioning started"); markErr != nil {
			log.Error("failed to mark provisioning job failed", "job_id", job.ID, "error", markErr)
		}
		return AnswerFailed
	}
	lead.QualificationStatus = domain.StatusProvisioning
	log.Info("lead approved", "job_id", job.ID, "tier", job.Tier)

	if err := s.provisioner.Run(ctx, lead, job); err != nil {
		log.Warn("provisioning run failed", "job_id", job.ID, "error", err)
	}
	return AnswerApproved
}

func (s *Service) reject(ctx context.Context, lead domain.Lead) string {
	log := s.log.WithContext(ctx)

	if !lead.QualificationStatus.IsReviewable() {
		return AnswerNotReadyReview
	}
	if err := s.leads.TransitionStatus(ctx, lead.ID, lead.QualificationStatus, domain.StatusRejected); err != nil {
		return s.lostRace(ctx, lead.ID, err)
	}

	s.appendActivity(ctx, activity.Entry{
		EventType: activity.EventLeadRejected,
		LeadID:    lead.ID,
		Details: map[string]interface{}{
			"rejected_by":     approvedByOperator,
			"previous_status": string(lead.QualificationStatus),
		},
	})

	if phone := lead.Phone(); phone != "" && s.customer != nil {
		if err := s.customer.SendText(ctx, phone, declineMessage); err != nil {
			log.Error("failed to send decline message", "error", err)
		}
	}
	s.notifyOperator(ctx, fmt.Sprintf("Lead %s has been rejected.", lead.DisplayName()))
	log.Info("lead rejected")
	return AnswerRejected
}

// lostRace re-reads the lead after a failed compare-and-set and answers for
// whatever state won.
func (s *Service) lostRace(ctx context.Context, leadID string, err error) string {
	if !errors.Is(err, domain.ErrStatusConflict) {
		s.log.WithContext(ctx).Error("failed to update lead status", "error", err)
		return AnswerFailed
	}
	current, readErr := s.leads.GetByID(ctx, leadID)
	if readErr != nil {
		return AnswerFailed
	}
	switch {
	case current.QualificationStatus.IsApprovedOrLater():
		return AnswerAlreadyApproved
	case current.QualificationStatus == domain.StatusRejected:
		return AnswerAlreadyRejected
	default:
		return AnswerFailed
	}
}

// Approve moves a qualified lead to approved without starting provisioning.
func (s *Service) Approve(ctx context.Context, leadID string) (domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.QualificationStatus != domain.StatusQualified {
		return domain.Lead{}, apperr.BadRequest(fmt.Sprintf("Cannot approve lead with status: %s", lead.QualificationStatus))
	}

	if err := s.leads.TransitionStatus(ctx, leadID, domain.StatusQualified, domain.StatusApproved); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return domain.Lead{}, apperr.Conflict("Lead status changed, please reload")
		}
		return domain.Lead{}, err
	}

	s.appendActivity(ctx, activity.Entry{
		EventType: activity.EventLeadApproved,
		LeadID:    leadID,
		Details:   map[string]interface{}{"approved_by": approvedByAdmin},
	})
	lead.QualificationStatus = domain.StatusApproved
	return lead, nil
}

func (s *Service) notifyOperator(ctx context.Context, text string) {
	if s.operator == nil {
		return
	}
	if err := s.operator.SendMessage(ctx, text); err != nil {
		s.log.WithContext(ctx).Warn("failed to notify operator", "error", err)
	}
}

func (s *Service) appendActivity(ctx context.Context, entry activity.Entry) {
	if err := s.activity.Append(ctx, entry); err != nil {
		s.log.WithContext(ctx).Error("failed to append activity", "event_type", entry.EventType, "error", err)
	}
}
