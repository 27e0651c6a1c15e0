package provisioning_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/leadstest"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning/provisioningtest"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/apperr"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

type fixture struct {
	leads        *leadstest.Store
	jobs         *provisioningtest.Jobs
	orchestrator *provisioningtest.Orchestrator
	activity     *leadstest.ActivityLog
	outbox       *leadstest.Outbox
	svc          *provisioning.Service
}

func newFixture() *fixture {
	f := &fixture{
		leads:        leadstest.NewStore(),
		jobs:         provisioningtest.NewJobs(),
		orchestrator: &provisioningtest.Orchestrator{Result: provisioning.Result{Success: true, Resources: map[string]interface{}{"tenant_id": "t-1"}}},
		activity:     &leadstest.ActivityLog{},
		outbox:       &leadstest.Outbox{},
	}
	f.svc = provisioning.NewService(f.leads, f.jobs, f.orchestrator, f.activity, f.outbox, f.outbox, logger.NewWithWriter("test", io.Discard))
	return f
}

func (f *fixture) provisioningLead(t *testing.T) (domain.Lead, provisioning.Job) {
	t.Helper()
	lead := leadstest.Lead("lead-1", domain.StatusProvisioning)
	f.leads.Put(lead)
	job, err := f.jobs.Create(context.Background(), provisioning.CreateJobParams{LeadID: lead.ID, Tier: domain.TierGrowth})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return lead, job
}

func TestRunSuccessCompletesJobAndNotifies(t *testing.T) {
	f := newFixture()
	lead, job := f.provisioningLead(t)

	if err := f.svc.Run(context.Background(), lead, job); err != nil {
		t.Fatalf("run: %v", err)
	}

	stored, _ := f.jobs.Get(job.ID)
	if stored.Status != provisioning.JobCompleted || stored.CurrentStep != provisioning.StepDone {
		t.Fatalf("expected completed job at step done, got %s/%s", stored.Status, stored.CurrentStep)
	}
	if stored.CreatedResources["tenant_id"] != "t-1" {
		t.Fatalf("expected resources stored, got %v", stored.CreatedResources)
	}
	updated, _ := f.leads.Get(lead.ID)
	if updated.QualificationStatus != domain.StatusProvisioned {
		t.Fatalf("expected provisioned lead, got %s", updated.QualificationStatus)
	}
	if f.activity.Count(activity.EventProvisioningCompleted) != 1 {
		t.Fatal("expected provisioning_completed activity")
	}

	operator := f.outbox.Operator()
	if len(operator) != 1 || operator[0].Text != "Provisioning complete for My Cool Business" {
		t.Fatalf("unexpected operator messages %+v", operator)
	}
	customer := f.outbox.Customer()
	if len(customer) != 1 || customer[0].To != "+27123456789" || !strings.Contains(customer[0].Text, "owner@example.com") {
		t.Fatalf("unexpected customer messages %+v", customer)
	}

	requests := f.orchestrator.Requests()
	if len(requests) != 1 || requests[0].ClientID != lead.ID || requests[0].Tier != domain.TierGrowth {
		t.Fatalf("unexpected orchestrator requests %+v", requests)
	}
}

func TestRunFailureMarksJobFailedWithoutCustomerMessage(t *testing.T) {
	f := newFixture()
	f.orchestrator.Err = errors.New("quota exceeded")
	lead, job := f.provisioningLead(t)

	if err := f.svc.Run(context.Background(), lead, job); err == nil {
		t.Fatal("expected run error")
	}

	stored, _ := f.jobs.Get(job.ID)
	if stored.Status != provisioning.JobFailed || stored.ErrorMessage == nil || *stored.ErrorMessage != "quota exceeded" {
		t.Fatalf("expected failed job with message, got %+v", stored)
	}
	updated, _ := f.leads.Get(lead.ID)
	if updated.QualificationStatus != domain.StatusProvisioning {
		t.Fatalf("expected lead to stay in provisioning, got %s", updated.QualificationStatus)
	}
	if f.activity.Count(activity.EventProvisioningFailed) != 1 {
		t.Fatal("expected provisioning_failed activity")
	}
	operator := f.outbox.Operator()
	if len(operator) != 1 || operator[0].Text != "Provisioning failed for My Cool Business: quota exceeded" {
		t.Fatalf("unexpected operator messages %+v", operator)
	}
	if len(f.outbox.Customer()) != 0 {
		t.Fatal("customer must not be notified of failures")
	}
}

func TestRunRecoversOrchestratorPanic(t *testing.T) {
	f := newFixture()
	f.orchestrator.Panic = "nil map write"
	lead, job := f.provisioningLead(t)

	err := f.svc.Run(context.Background(), lead, job)
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
	stored, _ := f.jobs.Get(job.ID)
	if stored.Status != provisioning.JobFailed {
		t.Fatalf("expected failed job, got %s", stored.Status)
	}
}

func TestRetryAfterFailedJob(t *testing.T) {
	f := newFixture()
	f.orchestrator.Err = errors.New("timeout")
	lead, job := f.provisioningLead(t)
	_ = f.svc.Run(context.Background(), lead, job)

	f.orchestrator.Err = nil
	retried, err := f.svc.Retry(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.ID == job.ID || retried.Attempt != 2 || retried.Status != provisioning.JobCompleted {
		t.Fatalf("expected fresh completed job on attempt 2, got %+v", retried)
	}
	if f.activity.Count(activity.EventProvisioningRetried) != 1 {
		t.Fatal("expected provisioning_retried activity")
	}
	updated, _ := f.leads.Get(lead.ID)
	if updated.QualificationStatus != domain.StatusProvisioned {
		t.Fatalf("expected provisioned lead, got %s", updated.QualificationStatus)
	}
}

func TestRetryFromApprovedWithoutJob(t *testing.T) {
	f := newFixture()
	lead := leadstest.Lead("lead-2", domain.StatusApproved)
	f.leads.Put(lead)

	job, err := f.svc.Retry(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if job.Attempt != 1 || job.Status != provisioning.JobCompleted {
		t.Fatalf("unexpected job %+v", job)
	}
	updated, _ := f.leads.Get(lead.ID)
	if updated.QualificationStatus != domain.StatusProvisioned {
		t.Fatalf("expected provisioned lead, got %s", updated.QualificationStatus)
	}
}

func TestRetryRejections(t *testing.T) {
	t.Run("active job", func(t *testing.T) {
		f := newFixture()
		lead, job := f.provisioningLead(t)
		_ = f.jobs.MarkRunning(context.Background(), job.ID, provisioning.StepProvisioning)

		_, err := f.svc.Retry(context.Background(), lead.ID)
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("wrong status", func(t *testing.T) {
		f := newFixture()
		f.leads.Put(leadstest.Lead("lead-3", domain.StatusQualified))

		_, err := f.svc.Retry(context.Background(), "lead-3")
		if !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("expected bad request, got %v", err)
		}
	})

	t.Run("unknown lead", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Retry(context.Background(), "missing")
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestFailStaleJobs(t *testing.T) {
	f := newFixture()
	lead := leadstest.Lead("lead-4", domain.StatusProvisioning)
	f.leads.Put(lead)
	old := time.Now().Add(-time.Hour)
	f.jobs.Put(provisioning.Job{ID: "job-stale", LeadID: lead.ID, Status: provisioning.JobRunning, CreatedAt: old, UpdatedAt: old})
	f.jobs.Put(provisioning.Job{ID: "job-fresh", LeadID: "other", Status: provisioning.JobRunning})

	failed, err := f.svc.FailStaleJobs(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("fail stale jobs: %v", err)
	}
	if failed != 1 {
		t.Fatalf("expected one stale job failed, got %d", failed)
	}
	stale, _ := f.jobs.Get("job-stale")
	if stale.Status != provisioning.JobFailed {
		t.Fatalf("expected stale job failed, got %s", stale.Status)
	}
	fresh, _ := f.jobs.Get("job-fresh")
	if fresh.Status != provisioning.JobRunning {
		t.Fatalf("expected fresh job untouched, got %s", fresh.Status)
	}
	if len(f.outbox.Operator()) != 1 {
		t.Fatalf("expected one operator alert, got %+v", f.outbox.Operator())
	}
}

// startFailingJobs fails MarkRunning a fixed number of times with a store error.
type startFailingJobs struct {
	*provisioningtest.Jobs
	failures int
}

func (s *startFailingJobs) MarkRunning(ctx context.Context, id, step string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("db blip")
	}
	return s.Jobs.MarkRunning(ctx, id, step)
}

func TestRunStartFailureMarksJobFailedAndAllowsRetry(t *testing.T) {
	f := newFixture()
	jobs := &startFailingJobs{Jobs: f.jobs, failures: 1}
	f.svc = provisioning.NewService(f.leads, jobs, f.orchestrator, f.activity, f.outbox, f.outbox, logger.NewWithWriter("test", io.Discard))
	lead, job := f.provisioningLead(t)

	if err := f.svc.Run(context.Background(), lead, job); err == nil {
		t.Fatal("expected start error")
	}

	stored, _ := f.jobs.Get(job.ID)
	if stored.Status != provisioning.JobFailed {
		t.Fatalf("expected failed job, got %s", stored.Status)
	}
	if f.activity.Count(activity.EventProvisioningFailed) != 1 {
		t.Fatal("expected provisioning_failed activity")
	}
	operator := f.outbox.Operator()
	if len(operator) != 1 || !strings.HasPrefix(operator[0].Text, "Provisioning failed for My Cool Business") {
		t.Fatalf("expected operator failure notice, got %+v", operator)
	}
	if len(f.orchestrator.Requests()) != 0 {
		t.Fatal("orchestrator must not be called when the job did not start")
	}

	retried, err := f.svc.Retry(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Attempt != 2 || retried.Status != provisioning.JobCompleted {
		t.Fatalf("expected completed second attempt, got %+v", retried)
	}
}
