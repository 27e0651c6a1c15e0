// Package provisioning runs the external tenant provisioning for approved leads
// and keeps the provisioning_jobs ledger.
package provisioning

import (
	"context"
	"errors"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

var (
	ErrJobNotFound     = errors.New("provisioning job not found")
	ErrActiveJobExists = errors.New("an active provisioning job already exists for this lead")
	ErrJobConflict     = errors.New("provisioning job is not in the expected status")
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Steps recorded in current_step.
const (
	StepAwaitingStart = "awaiting_start"
	StepProvisioning  = "provisioning"
	StepDone          = "done"
)

// IsActive reports whether the job still holds the per-lead active slot.
func (s JobStatus) IsActive() bool {
	return s == JobPending || s == JobRunning
}

type Job struct {
	ID               string                 `json:"id"`
	LeadID           string                 `json:"leadId"`
	Status           JobStatus              `json:"status"`
	CurrentStep      string                 `json:"currentStep"`
	Tier             domain.Tier            `json:"tier"`
	CreatedResources map[string]interface{} `json:"createdResources,omitempty"`
	ErrorMessage     *string                `json:"errorMessage,omitempty"`
	Attempt          int                    `json:"attempt"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

type CreateJobParams struct {
	LeadID  string
	Tier    domain.Tier
	Attempt int
}

// JobStore persists provisioning jobs. Status writes are conditional on the
// job still being active.
type JobStore interface {
	Create(ctx context.Context, params CreateJobParams) (Job, error)
	MarkRunning(ctx context.Context, id, step string) error
	MarkCompleted(ctx context.Context, id string, resources map[string]interface{}) error
	MarkFailed(ctx context.Context, id, message string) error
	Latest(ctx context.Context, leadID string) (Job, error)
	ListByLead(ctx context.Context, leadID string) ([]Job, error)
	ListStaleRunning(ctx context.Context, updatedBefore time.Time, limit int) ([]Job, error)
}
