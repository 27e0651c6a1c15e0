// Package provisioningtest provides in-memory provisioning doubles for tests.
package provisioningtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning"
)

// Jobs is an in-memory JobStore that enforces one active job per lead.
type Jobs struct {
	mu     sync.Mutex
	jobs   map[string]provisioning.Job
	nextID int
	now    func() time.Time
}

var _ provisioning.JobStore = (*Jobs)(nil)

func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]provisioning.Job), now: time.Now}
}

// Put stores a job as-is.
func (s *Jobs) Put(job provisioning.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.tick()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	s.jobs[job.ID] = job
}

// Get returns a stored job.
func (s *Jobs) Get(id string) (provisioning.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

// CountForLead returns how many jobs were created for a lead.
func (s *Jobs) CountForLead(leadID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, job := range s.jobs {
		if job.LeadID == leadID {
			n++
		}
	}
	return n
}

func (s *Jobs) Create(_ context.Context, params provisioning.CreateJobParams) (provisioning.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.LeadID == params.LeadID && job.Status.IsActive() {
			return provisioning.Job{}, provisioning.ErrActiveJobExists
		}
	}

	s.nextID++
	attempt := params.Attempt
	if attempt < 1 {
		attempt = 1
	}
	now := s.tick()
	job := provisioning.Job{
		ID:          fmt.Sprintf("job-%d", s.nextID),
		LeadID:      params.LeadID,
		Status:      provisioning.JobPending,
		CurrentStep: provisioning.StepAwaitingStart,
		Tier:        params.Tier,
		Attempt:     attempt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *Jobs) MarkRunning(_ context.Context, id, step string) error {
	return s.update(id, []provisioning.JobStatus{provisioning.JobPending}, func(job *provisioning.Job) {
		job.Status = provisioning.JobRunning
		job.CurrentStep = step
	})
}

func (s *Jobs) MarkCompleted(_ context.Context, id string, resources map[string]interface{}) error {
	return s.update(id, []provisioning.JobStatus{provisioning.JobPending, provisioning.JobRunning}, func(job *provisioning.Job) {
		job.Status = provisioning.JobCompleted
		job.CurrentStep = provisioning.StepDone
		job.CreatedResources = resources
		job.ErrorMessage = nil
	})
}

func (s *Jobs) MarkFailed(_ context.Context, id, message string) error {
	return s.update(id, []provisioning.JobStatus{provisioning.JobPending, provisioning.JobRunning}, func(job *provisioning.Job) {
		job.Status = provisioning.JobFailed
		job.ErrorMessage = &message
	})
}

func (s *Jobs) Latest(_ context.Context, leadID string) (provisioning.Job, error) {
	jobs := s.byLead(leadID)
	if len(jobs) == 0 {
		return provisioning.Job{}, provisioning.ErrJobNotFound
	}
	return jobs[0], nil
}

func (s *Jobs) ListByLead(_ context.Context, leadID string) ([]provisioning.Job, error) {
	return s.byLead(leadID), nil
}

func (s *Jobs) ListStaleRunning(_ context.Context, updatedBefore time.Time, limit int) ([]provisioning.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provisioning.Job, 0)
	for _, job := range s.jobs {
		if job.Status == provisioning.JobRunning && job.UpdatedAt.Before(updatedBefore) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Jobs) update(id string, from []provisioning.JobStatus, apply func(job *provisioning.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return provisioning.ErrJobNotFound
	}
	allowed := false
	for _, status := range from {
		if job.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return provisioning.ErrJobConflict
	}
	apply(&job)
	job.UpdatedAt = s.tick()
	s.jobs[id] = job
	return nil
}

func (s *Jobs) byLead(leadID string) []provisioning.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provisioning.Job, 0)
	for _, job := range s.jobs {
		if job.LeadID == leadID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// tick returns strictly increasing timestamps so ordering is stable.
func (s *Jobs) tick() time.Time {
	now := s.now()
	return now.Add(time.Duration(s.nextID) * time.Millisecond)
}
