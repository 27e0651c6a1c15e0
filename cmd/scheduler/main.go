package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/adapters/storage"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/email"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/events"
	leadrepo "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/notification"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification/agent"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/scheduler"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/telegram"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/whatsapp"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/db"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/resilience"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	leads := leadrepo.New(pool)
	activityLog := activity.NewRepository(pool)
	telegramClient := telegram.NewClient(cfg, log)
	whatsappClient := whatsapp.NewClient(cfg, log)

	// Qualification and proposal events are published in this process.
	notificationModule := notification.New(leads, telegramClient, sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	qualifier, err := agent.NewQualifier(agent.QualifierModel(cfg))
	if err != nil {
		log.Error("failed to initialize qualifier agent", "error", err)
		panic("failed to initialize qualifier agent: " + err.Error())
	}
	proposals, err := agent.NewProposalGenerator(agent.ProposalModel(cfg))
	if err != nil {
		log.Error("failed to initialize proposal agent", "error", err)
		panic("failed to initialize proposal agent: " + err.Error())
	}

	qualificationService := qualification.NewService(
		leads,
		qualification.NewSessionRepository(pool),
		qualifier,
		proposals,
		activityLog,
		eventBus,
		cfg.GetQualifierTimeout(),
		log,
	)
	qualificationService.SetProposalTrigger(queue)
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
		} else {
			qualificationService.SetArchive(qualification.NewObjectArchive(storageSvc, cfg.GetMinioBucketProposals()))
		}
	}

	jobs := provisioning.NewRepository(pool)
	provisioningService := provisioning.NewService(leads, jobs, provisioning.NewHTTPOrchestrator(cfg), activityLog, telegramClient, whatsappClient, log)

	qualificationReaper := scheduler.NewQualificationReaper(leads, queue, activityLog, log, cfg.GetReaperInterval(), cfg.GetQualifyingStaleAfter())
	go qualificationReaper.Run(ctx)

	provisioningReaper := scheduler.NewProvisioningReaper(provisioningService, log, cfg.GetReaperInterval(), cfg.GetProvisioningStaleAfter())
	go provisioningReaper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, qualificationService, qualificationService, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// startupRetry covers dependencies that may still be starting next to us.
var startupRetry = resilience.RetryConfig{MaxRetries: 4, InitialBackoff: 2 * time.Second}

func withRetry(ctx context.Context, log *logger.Logger, name string, fn func() error) error {
	attempt := 0
	err := resilience.RetryWithBackoff(ctx, startupRetry, func() error {
		attempt++
		err := fn()
		if err != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return errors.New(name + ": " + err.Error())
	}
	return nil
}
