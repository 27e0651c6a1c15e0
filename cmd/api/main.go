package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/adapters/storage"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/approval"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/capture"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/email"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/events"
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http/router"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/intake"
	leadrepo "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/notification"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification/agent"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/scheduler"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/telegram"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/whatsapp"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/migrations"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/db"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/ratelimit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/resilience"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	captureRateLimitPrefix = "ratelimit:capture"
	limiterSweepInterval   = time.Minute

	webhookRatePerSecond = 20
	webhookBurst         = 60
	webhookLimiterTTL    = 10 * time.Minute
)

// leadTrigger starts qualification and proposal work without waiting for it.
type leadTrigger interface {
	TriggerQualification(ctx context.Context, leadID string) error
	TriggerProposal(ctx context.Context, leadID string) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	leads := leadrepo.New(pool)
	activityLog := activity.NewRepository(pool)
	whatsappClient := whatsapp.NewClient(cfg, log)
	telegramClient := telegram.NewClient(cfg, log)

	trigger, closeTrigger := initLeadTrigger(cfg, log)
	if closeTrigger != nil {
		defer closeTrigger()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(leads, telegramClient, sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	intakeService := intake.NewService(leads, activityLog, whatsappClient, log)
	intakeService.SetQualificationTrigger(trigger)
	whatsappModule := whatsapp.NewModule(intakeService, cfg, log)

	qualificationService, err := newQualificationService(cfg, pool, leads, activityLog, eventBus, log)
	if err != nil {
		log.Error("failed to initialize qualification agents", "error", err)
		panic("failed to initialize qualification agents: " + err.Error())
	}
	qualificationService.SetProposalTrigger(trigger)
	if archive := initProposalArchive(ctx, cfg, log); archive != nil {
		qualificationService.SetArchive(archive)
	}
	qualificationModule := qualification.NewModule(qualificationService)

	captureService := capture.NewService(leads, activityLog, log)
	captureService.SetQualificationTrigger(trigger)
	captureModule := capture.NewModule(captureService, initCaptureLimiter(ctx, cfg, log), log)

	jobs := provisioning.NewRepository(pool)
	provisioningService := provisioning.NewService(leads, jobs, provisioning.NewHTTPOrchestrator(cfg), activityLog, telegramClient, whatsappClient, log)
	provisioningModule := provisioning.NewModule(provisioningService)

	approvalService := approval.NewService(leads, jobs, provisioningService, activityLog, telegramClient, whatsappClient, log)
	approvalModule := approval.NewModule(approvalService, telegramClient, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			whatsappModule,
			approvalModule,
			captureModule,
			qualificationModule,
			provisioningModule,
		},
	}

	webhookLimiter := httpkit.NewIPRateLimiter(rate.Limit(webhookRatePerSecond), webhookBurst, webhookLimiterTTL, log)
	go webhookLimiter.RunSweeper(ctx, limiterSweepInterval)
	app.WebhookLimiter = webhookLimiter

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newQualificationService(cfg *config.Config, pool *pgxpool.Pool, leads *leadrepo.Repository, activityLog *activity.Repository, bus events.Bus, log *logger.Logger) (*qualification.Service, error) {
	qualifier, err := agent.NewQualifier(agent.QualifierModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("qualifier: %w", err)
	}
	proposals, err := agent.NewProposalGenerator(agent.ProposalModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("proposal generator: %w", err)
	}
	sessions := qualification.NewSessionRepository(pool)
	return qualification.NewService(leads, sessions, qualifier, proposals, activityLog, bus, cfg.GetQualifierTimeout(), log), nil
}

// initLeadTrigger prefers the asynq queue and falls back to internal HTTP calls.
func initLeadTrigger(cfg *config.Config, log *logger.Logger) (leadTrigger, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; qualification runs through internal HTTP calls")
		httpTrigger := qualification.NewHTTPTrigger(cfg, log)
		return httpTrigger, httpTrigger.Wait
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client; falling back to internal HTTP calls", "error", err)
		httpTrigger := qualification.NewHTTPTrigger(cfg, log)
		return httpTrigger, httpTrigger.Wait
	}

	return client, func() {
		_ = client.Close()
	}
}

func initProposalArchive(ctx context.Context, cfg *config.Config, log *logger.Logger) qualification.ProposalArchive {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MinIO not configured; proposals are not archived")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		return nil
	}

	bucket := cfg.GetMinioBucketProposals()
	if err := withRetry(ctx, log, "ensure proposals bucket", func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		return nil
	}

	log.Info("storage service initialized", "proposalsBucket", bucket)
	return qualification.NewObjectArchive(storageSvc, bucket)
}

func initCaptureLimiter(ctx context.Context, cfg *config.Config, log *logger.Logger) ratelimit.Limiter {
	limit, window := cfg.GetCaptureRateLimit(), cfg.GetCaptureRateWindow()

	if cfg.GetRedisURL() != "" {
		client, err := newRedisClient(cfg)
		if err == nil {
			log.Info("capture rate limiter backed by redis", "limit", limit, "window", window)
			return ratelimit.NewRedis(client, captureRateLimitPrefix, limit, window)
		}
		log.Error("failed to initialize redis rate limiter; using in-memory limiter", "error", err)
	}

	limiter := ratelimit.NewMemoryPerWindow(limit, window)
	go limiter.RunSweeper(ctx, limiterSweepInterval)
	log.Info("capture rate limiter in memory", "limit", limit, "window", window)
	return limiter
}

func newRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12} //nolint:gosec
	}
	return redis.NewClient(opts), nil
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
