package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/apperr"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	customerReadyMessage = "Great news! Your DraggonnB platform is being set up. You'll receive an email at %s with login details shortly!"
	staleJobMessage      = "provisioning timed out"
	staleJobBatch        = 50
)

// LeadStore is the slice of the leads repository provisioning needs.
type LeadStore interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.QualificationStatus) error
}

// ActivityLog appends and lists audit entries.
type ActivityLog interface {
	activity.Writer
	activity.Reader
}

// OperatorNotifier reaches the operator chat.
type OperatorNotifier interface {
	SendMessage(ctx context.Context, text string) error
}

// CustomerMessenger reaches the lead on WhatsApp.
type CustomerMessenger interface {
	SendText(ctx context.Context, to, body string) error
}

// History is the admin view of a lead's provisioning attempts.
type History struct {
	LeadID   string                     `json:"leadId"`
	Status   domain.QualificationStatus `json:"status"`
	Jobs     []Job                      `json:"jobs"`
	Activity []activity.Entry           `json:"activity"`
}

type Service struct {
	leads        LeadStore
	jobs         JobStore
	orchestrator Orchestrator
	activity     ActivityLog
	operator     OperatorNotifier
	customer     CustomerMessenger
	log          *logger.Logger
}

func NewService(leads LeadStore, jobs JobStore, orchestrator Orchestrator, activityLog ActivityLog, operator OperatorNotifier, customer CustomerMessenger, log *logger.Logger) *Service {
	return &Service{
		leads:        leads,
		jobs:         jobs,
		orchestrator: orchestrator,
		activity:     activityLog,
		operator:     operator,
		customer:     customer,
		log:          log,
	}
}

// Run executes one provisioning job for a lead already in provisioning.
// The outcome is recorded on the job and in the activity log; the returned
// error only reports that the attempt failed.
func (s *Service) Run(ctx context.Context, lead domain.Lead, job Job) error {
	log := s.log.WithLeadID(lead.ID)

	if err := s.jobs.MarkRunning(ctx, job.ID, StepProvisioning); err != nil {
		if errors.Is(err, ErrJobConflict) {
			log.Info("provisioning job no longer pending", "job_id", job.ID)
			return fmt.Errorf("start provisioning job %s: %w", job.ID, err)
		}
		s.fail(ctx, lead, job, fmt.Sprintf("could not start provisioning: %v", err))
		return fmt.Errorf("start provisioning job %s: %w", job.ID, err)
	}

	result, err := s.provision(ctx, Request{
		ClientID:   lead.ID,
		ClientName: lead.DisplayName(),
		Email:      lead.EmailAddress(),
		Tier:       job.Tier,
	})
	if err != nil {
		s.fail(ctx, lead, job, err.Error())
		return err
	}

	if err := s.jobs.MarkCompleted(ctx, job.ID, result.Resources); err != nil {
		log.Error("failed to mark provisioning job completed", "job_id", job.ID, "error", err)
	}
	if err := s.leads.TransitionStatus(ctx, lead.ID, domain.StatusProvisioning, domain.StatusProvisioned); err != nil {
		log.Error("failed to mark lead provisioned", "error", err)
	}
	s.appendActivity(ctx, activity.Entry{
		EventType: activity.EventProvisioningCompleted,
		LeadID:    lead.ID,
		JobID:     job.ID,
		Details: map[string]interface{}{
			"tier":      string(job.Tier),
			"resources": result.Resources,
		},
	})
	log.Info("provisioning completed", "job_id", job.ID, "tier", job.Tier)

	s.notifyCompleted(ctx, lead)
	return nil
}

// Retry starts a fresh job for a lead whose last attempt failed, or for an
// approved lead that never got a job.
func (s *Service) Retry(ctx context.Context, leadID string) (Job, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return Job{}, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return Job{}, err
	}

	latest, err := s.jobs.Latest(ctx, leadID)
	hasJob := err == nil
	if err != nil && !errors.Is(err, ErrJobNotFound) {
		return Job{}, err
	}
	if hasJob && latest.Status.IsActive() {
		return Job{}, apperr.Conflict("Provisioning already in progress")
	}

	switch lead.QualificationStatus {
	case domain.StatusProvisioning:
		if hasJob && latest.Status == JobCompleted {
			return Job{}, apperr.Conflict("Provisioning already completed")
		}
	case domain.StatusApproved:
	default:
		return Job{}, apperr.BadRequest(fmt.Sprintf("Cannot retry provisioning for lead with status: %s", lead.QualificationStatus))
	}

	attempt := 1
	tier := TierFor(lead)
	if hasJob {
		attempt = latest.Attempt + 1
		tier = latest.Tier
	}

	job, err := s.jobs.Create(ctx, CreateJobParams{LeadID: lead.ID, Tier: tier, Attempt: attempt})
	if errors.Is(err, ErrActiveJobExists) {
		return Job{}, apperr.Conflict("Provisioning already in progress")
	}
	if err != nil {
		return Job{}, err
	}

	if lead.QualificationStatus == domain.StatusApproved {
		if err := s.leads.TransitionStatus(ctx, lead.ID, domain.StatusApproved, domain.StatusProvisioning); err != nil {
			if markErr := s.jobs.MarkFailed(ctx, job.ID, "lead status changed before provisioning started"); markErr != nil {
				s.log.WithLeadID(lead.ID).Error("failed to mark provisioning job failed", "job_id", job.ID, "error", markErr)
			}
			if errors.Is(err, domain.ErrStatusConflict) {
				return Job{}, apperr.Conflict("Lead status changed, please reload")
			}
			return Job{}, err
		}
		lead.QualificationStatus = domain.StatusProvisioning
	}

	s.appendActivity(ctx, activity.Entry{
		EventType: activity.EventProvisioningRetried,
		LeadID:    lead.ID,
		JobID:     job.ID,
		Details:   map[string]interface{}{"attempt": attempt},
	})

	// A failed run is reflected on the job.
	_ = s.Run(ctx, lead, job)

	final, err := s.jobs.Latest(ctx, lead.ID)
	if err != nil {
		return job, nil
	}
	return final, nil
}

// History returns all jobs and audit entries for a lead.
func (s *Service) History(ctx context.Context, leadID string) (History, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return History{}, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return History{}, err
	}

	jobs, err := s.jobs.ListByLead(ctx, leadID)
	if err != nil {
		return History{}, fmt.Errorf("list provisioning jobs: %w", err)
	}
	entries, err := s.activity.ListByLead(ctx, leadID)
	if err != nil {
		return History{}, fmt.Errorf("list activity: %w", err)
	}

	return History{
		LeadID:   lead.ID,
		Status:   lead.QualificationStatus,
		Jobs:     jobs,
		Activity: entries,
	}, nil
}

// FailStaleJobs marks running jobs without progress since olderThan as failed
// and tells the operator. It returns the number of jobs failed.
func (s *Service) FailStaleJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.jobs.ListStaleRunning(ctx, time.Now().Add(-olderThan), staleJobBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale provisioning jobs: %w", err)
	}

	failed := 0
	for _, job := range stale {
		lead, err := s.leads.GetByID(ctx, job.LeadID)
		if err != nil {
			s.log.Error("stale provisioning job references unreadable lead", "job_id", job.ID, "lead_id", job.LeadID, "error", err)
			lead = domain.Lead{ID: job.LeadID}
		}
		if s.fail(ctx, lead, job, staleJobMessage) {
			failed++
		}
	}
	return failed, nil
}

func (s *Service) provision(ctx context.Context, req Request) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator panic: %v", r)
		}
	}()
	return s.orchestrator.Provision(ctx, req)
}

// fail records a failed attempt. It reports false when the job had already
// left the active states.
func (s *Service) fail(ctx context.Context, lead domain.Lead, job Job, message string) bool {
	log := s.log.WithLeadID(lead.ID)

	if err := s.jobs.MarkFailed(ctx, job.ID, message); err != nil {
		if errors.Is(err, ErrJobConflict) {
			log.Info("provisioning job already finished", "job_id", job.ID)
			return false
		}
		log.Error("failed to mark provisioning job failed", "job_id", job.ID, "error", err)
	}
	s.appendActivity(ctx, activity.Entry{
		EventType: activity.EventProvisioningFailed,
		LeadID:    lead.ID,
		JobID:     job.ID,
		Details:   map[string]interface{}{"error": message},
	})
	log.Warn("provisioning failed", "job_id", job.ID, "error", message)

	s.notifyOperator(ctx, lead.ID, fmt.Sprintf("Provisioning failed for %s: %s", lead.DisplayName(), message))
	return true
}

func (s *Service) notifyCompleted(ctx context.Context, lead domain.Lead) {
	var g errgroup.Group

	g.Go(func() error {
		s.notifyOperator(ctx, lead.ID, fmt.Sprintf("Provisioning complete for %s", lead.DisplayName()))
		return nil
	})
	if phone := lead.Phone(); phone != "" && s.customer != nil {
		g.Go(func() error {
			email := lead.EmailAddress()
			if email == "" {
				email = "the address you gave us"
			}
			if err := s.customer.SendText(ctx, phone, fmt.Sprintf(customerReadyMessage, email)); err != nil {
				s.log.WithLeadID(lead.ID).Error("failed to notify customer of provisioning", "error", err)
				return err
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Service) notifyOperator(ctx context.Context, leadID, text string) {
	if s.operator == nil {
		return
	}
	if err := s.operator.SendMessage(ctx, text); err != nil {
		s.log.WithLeadID(leadID).Warn("failed to notify operator", "error", err)
	}
}

func (s *Service) appendActivity(ctx context.Context, entry activity.Entry) {
	if err := s.activity.Append(ctx, entry); err != nil {
		s.log.WithLeadID(entry.LeadID).Error("failed to append activity", "event_type", entry.EventType, "error", err)
	}
}

// TierFor returns the normalised tier recommended for the lead, core by default.
func TierFor(lead domain.Lead) domain.Tier {
	if lead.RecommendedTier != nil {
		return domain.NormalizeTier(string(*lead.RecommendedTier))
	}
	return domain.TierCore
}
