// Package capture accepts leads from the public qualify form.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/apperr"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/phone"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/sanitize"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/validator"
)

const (
	dedupeWindow  = 24 * time.Hour
	maxFieldRunes = 500
	maxIssues     = 20

	msgEmailRequired   = "Email is required"
	msgCompanyRequired = "Company name is required"
	msgInvalidEmail    = "Invalid email address"
	msgIssuesRequired  = "At least one business challenge is required"
)

// LeadStore is the lead persistence capture needs.
type LeadStore interface {
	FindRecentByEmail(ctx context.Context, email string, since time.Time) (domain.Lead, error)
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
}

// QualificationTrigger starts qualification without waiting for it.
type QualificationTrigger interface {
	TriggerQualification(ctx context.Context, leadID string) error
}

// Request is the public form payload.
type Request struct {
	Email          string   `json:"email"`
	CompanyName    string   `json:"company_name"`
	ContactName    string   `json:"contact_name"`
	Phone          string   `json:"phone"`
	Website        string   `json:"website"`
	Industry       string   `json:"industry"`
	CompanySize    string   `json:"company_size"`
	Source         string   `json:"source"`
	BusinessIssues []string `json:"business_issues"`
	Honeypot       string   `json:"honeypot"`
}

// input is the cleaned request that gets validated and stored.
type input struct {
	Email          string   `json:"email" validate:"required,email"`
	CompanyName    string   `json:"company_name" validate:"required,notblank"`
	ContactName    string   `json:"contact_name"`
	Phone          string   `json:"phone"`
	Website        string   `json:"website"`
	Industry       string   `json:"industry"`
	CompanySize    string   `json:"company_size"`
	Source         string   `json:"source"`
	BusinessIssues []string `json:"business_issues" validate:"min=1,dive,notblank"`
}

// Result is the outcome of a capture.
type Result struct {
	LeadID    string
	Duplicate bool
}

type Service struct {
	leads     LeadStore
	activity  activity.Writer
	trigger   QualificationTrigger
	validator *validator.Validator
	log       *logger.Logger
	now       func() time.Time
}

func NewService(leads LeadStore, activityWriter activity.Writer, log *logger.Logger) *Service {
	return &Service{
		leads:     leads,
		activity:  activityWriter,
		validator: validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// SetQualificationTrigger wires the qualification kickoff after a capture.
func (s *Service) SetQualificationTrigger(trigger QualificationTrigger) {
	s.trigger = trigger
}

// Capture validates and stores a form lead. The same email within 24 hours
// returns the earlier lead.
func (s *Service) Capture(ctx context.Context, req Request) (Result, error) {
	in := normalize(req)
	if err := s.validator.Struct(in); err != nil {
		return Result{}, apperr.Validation(validationMessage(err)).WithDetails(validator.FieldErrors(err))
	}

	existing, err := s.leads.FindRecentByEmail(ctx, in.Email, s.now().Add(-dedupeWindow))
	if err == nil {
		s.log.Info("lead already captured", "lead_id", existing.ID)
		return Result{LeadID: existing.ID, Duplicate: true}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Result{}, fmt.Errorf("check duplicate lead: %w", err)
	}

	lead, err := s.leads.Create(ctx, repository.CreateLeadParams{
		PhoneNumber:       optional(phone.NormalizeE164(in.Phone)),
		Source:            in.Source,
		ConversationState: domain.StateComplete,
		BusinessName:      optional(in.CompanyName),
		ContactName:       optional(in.ContactName),
		Website:           optional(in.Website),
		Email:             optional(in.Email),
		Industry:          optional(in.Industry),
		CompanySize:       optional(in.CompanySize),
		BusinessIssues:    in.BusinessIssues,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create lead: %w", err)
	}

	s.log.Info("lead captured", "lead_id", lead.ID, "source", in.Source)
	if s.activity != nil {
		if err := s.activity.Append(ctx, activity.Entry{
			EventType: activity.EventLeadCaptured,
			LeadID:    lead.ID,
			Details:   map[string]interface{}{"source": in.Source, "email": in.Email},
		}); err != nil {
			s.log.Error("failed to record capture activity", "lead_id", lead.ID, "error", err)
		}
	}

	if s.trigger == nil {
		s.log.Warn("qualification trigger not configured", "lead_id", lead.ID)
	} else if err := s.trigger.TriggerQualification(context.WithoutCancel(ctx), lead.ID); err != nil {
		s.log.Error("failed to trigger qualification", "lead_id", lead.ID, "error", err)
	}

	return Result{LeadID: lead.ID}, nil
}

func normalize(req Request) input {
	in := input{
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		CompanyName: clean(req.CompanyName),
		ContactName: clean(req.ContactName),
		Phone:       strings.TrimSpace(req.Phone),
		Website:     clean(req.Website),
		Industry:    clean(req.Industry),
		CompanySize: clean(req.CompanySize),
		Source:      clean(req.Source),
	}
	if in.Source == "" {
		in.Source = domain.SourceQualifyForm
	}
	in.BusinessIssues = make([]string, 0, len(req.BusinessIssues))
	for _, issue := range req.BusinessIssues {
		if issue = clean(issue); issue != "" && len(in.BusinessIssues) < maxIssues {
			in.BusinessIssues = append(in.BusinessIssues, issue)
		}
	}
	return in
}

// validationMessage reports the first failing rule in form order.
func validationMessage(err error) string {
	fields := validator.FieldErrors(err)
	switch {
	case fields["email"] == "required":
		return msgEmailRequired
	case fields["company_name"] != "":
		return msgCompanyRequired
	case fields["email"] != "":
		return msgInvalidEmail
	default:
		return msgIssuesRequired
	}
}

func clean(s string) string {
	return sanitize.Truncate(strings.TrimSpace(sanitize.Text(s)), maxFieldRunes)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
