package scheduler

import (
	"context"
	"fmt"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/apperr"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"github.com/hibiken/asynq"
)

// LeadQualifier runs the qualifier for one lead.
type LeadQualifier interface {
	Qualify(ctx context.Context, leadID string) (qualification.Result, error)
}

// ProposalWriter writes the proposal for one lead.
type ProposalWriter interface {
	GenerateProposal(ctx context.Context, leadID string) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	qualifier LeadQualifier
	proposals ProposalWriter
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, qualifier LeadQualifier, proposals ProposalWriter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	w := &Worker{
		mux:       asynq.NewServeMux(),
		qualifier: qualifier,
		proposals: proposals,
		log:       log,
	}
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(w.logTaskError),
	})

	w.mux.HandleFunc(TaskQualifyLead, w.handleQualifyLead)
	w.mux.HandleFunc(TaskGenerateProposal, w.handleGenerateProposal)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleQualifyLead(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadTaskPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.qualifier.Qualify(ctx, payload.LeadID)
	if err != nil {
		return retryable(err)
	}
	if result.AlreadyProcessed {
		w.log.Info("qualification task skipped", "lead_id", payload.LeadID, "status", result.Status)
	}
	return nil
}

func (w *Worker) handleGenerateProposal(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadTaskPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return retryable(w.proposals.GenerateProposal(ctx, payload.LeadID))
}

// retryable stops asynq from retrying errors that cannot succeed later.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.GetKind(err) {
	case apperr.KindNotFound, apperr.KindBadRequest, apperr.KindValidation:
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}

func (w *Worker) logTaskError(_ context.Context, task *asynq.Task, err error) {
	leadID := ""
	if payload, parseErr := ParseLeadTaskPayload(task); parseErr == nil {
		leadID = payload.LeadID
	}
	w.log.Error("scheduler task failed", "task", task.Type(), "lead_id", leadID, "error", err)
}
