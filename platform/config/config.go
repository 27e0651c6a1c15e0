// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the admin middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// InternalAPIConfig provides the shared secret for service-to-service calls.
type InternalAPIConfig interface {
	GetInternalAPISecret() string
	GetAppBaseURL() string
}

// SchedulerConfig provides Redis and asynq settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// WhatsAppConfig provides WhatsApp Cloud API settings.
type WhatsAppConfig interface {
	GetWhatsAppAPIBaseURL() string
	GetWhatsAppAccessToken() string
	GetWhatsAppPhoneNumberID() string
	GetWhatsAppVerifyToken() string
	GetWhatsAppAppSecret() string
}

// TelegramConfig provides Telegram bot settings.
type TelegramConfig interface {
	GetTelegramBotToken() string
	GetTelegramChatID() string
	GetTelegramWebhookSecret() string
}

// AgentConfig provides LLM settings for the qualifier and proposal agents.
type AgentConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
	GetQualifierTimeout() time.Duration
}

// ProvisioningConfig provides settings for the external provisioning orchestrator.
type ProvisioningConfig interface {
	GetProvisioningOrchestratorURL() string
	GetProvisioningOrchestratorToken() string
	GetProvisioningTimeout() time.Duration
}

// EmailConfig provides SMTP settings.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// MinIOConfig provides settings for S3-compatible proposal storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketProposals() string
	IsMinIOEnabled() bool
}

// CaptureConfig provides the public lead capture limits.
type CaptureConfig interface {
	GetCaptureRateLimit() int
	GetCaptureRateWindow() time.Duration
}

// ReaperConfig provides the thresholds used by the scheduler reapers.
type ReaperConfig interface {
	GetQualifyingStaleAfter() time.Duration
	GetProvisioningStaleAfter() time.Duration
	GetReaperInterval() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	AppBaseURL     string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	JWTAccessSecret   string
	InternalAPISecret string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	WhatsAppAPIBaseURL    string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string

	TelegramBotToken      string
	TelegramChatID        string
	TelegramWebhookSecret string

	LLMAPIKey        string
	LLMBaseURL       string
	LLMModel         string
	QualifierTimeout time.Duration

	ProvisioningOrchestratorURL   string
	ProvisioningOrchestratorToken string
	ProvisioningTimeout           time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinioBucketProposals string

	CaptureRateLimit  int
	CaptureRateWindow time.Duration

	QualifyingStaleAfter   time.Duration
	ProvisioningStaleAfter time.Duration
	ReaperInterval         time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetInternalAPISecret() string { return c.InternalAPISecret }
func (c *Config) GetAppBaseURL() string        { return c.AppBaseURL }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetWhatsAppAPIBaseURL() string    { return c.WhatsAppAPIBaseURL }
func (c *Config) GetWhatsAppAccessToken() string   { return c.WhatsAppAccessToken }
func (c *Config) GetWhatsAppPhoneNumberID() string { return c.WhatsAppPhoneNumberID }
func (c *Config) GetWhatsAppVerifyToken() string   { return c.WhatsAppVerifyToken }
func (c *Config) GetWhatsAppAppSecret() string     { return c.WhatsAppAppSecret }

func (c *Config) GetTelegramBotToken() string      { return c.TelegramBotToken }
func (c *Config) GetTelegramChatID() string        { return c.TelegramChatID }
func (c *Config) GetTelegramWebhookSecret() string { return c.TelegramWebhookSecret }

func (c *Config) GetLLMAPIKey() string               { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string              { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string                { return c.LLMModel }
func (c *Config) GetQualifierTimeout() time.Duration { return c.QualifierTimeout }

func (c *Config) GetProvisioningOrchestratorURL() string   { return c.ProvisioningOrchestratorURL }
func (c *Config) GetProvisioningOrchestratorToken() string { return c.ProvisioningOrchestratorToken }
func (c *Config) GetProvisioningTimeout() time.Duration    { return c.ProvisioningTimeout }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetMinIOEndpoint() string        { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string       { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string       { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool            { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketProposals() string { return c.MinioBucketProposals }

// IsMinIOEnabled returns true if MinIO is configured.
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetCaptureRateLimit() int               { return c.CaptureRateLimit }
func (c *Config) GetCaptureRateWindow() time.Duration    { return c.CaptureRateWindow }
func (c *Config) GetQualifyingStaleAfter() time.Duration { return c.QualifyingStaleAfter }
func (c *Config) GetProvisioningStaleAfter() time.Duration {
	return c.ProvisioningStaleAfter
}
func (c *Config) GetReaperInterval() time.Duration { return c.ReaperInterval }

// =============================================================================
// Config Loading
// =============================================================================

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AppBaseURL:     strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),

		JWTAccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
		InternalAPISecret: getEnv("INTERNAL_API_SECRET", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		WhatsAppAPIBaseURL:    getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:        getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		LLMAPIKey:        getEnv("LLM_API_KEY", getEnv("MOONSHOT_API_KEY", "")),
		LLMBaseURL:       getEnv("LLM_BASE_URL", ""),
		LLMModel:         getEnv("LLM_MODEL", ""),
		QualifierTimeout: mustDuration(getEnv("QUALIFIER_TIMEOUT", "60s")),

		ProvisioningOrchestratorURL:   getEnv("PROVISIONING_ORCHESTRATOR_URL", ""),
		ProvisioningOrchestratorToken: getEnv("PROVISIONING_ORCHESTRATOR_TOKEN", ""),
		ProvisioningTimeout:           mustDuration(getEnv("PROVISIONING_TIMEOUT", "5m")),

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "DraggonnB"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		MinIOEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:          strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketProposals: getEnv("MINIO_BUCKET_PROPOSALS", "lead-proposals"),

		CaptureRateLimit:  mustInt(getEnv("CAPTURE_RATE_LIMIT", "5")),
		CaptureRateWindow: mustDuration(getEnv("CAPTURE_RATE_WINDOW", "1m")),

		QualifyingStaleAfter:   mustDuration(getEnv("QUALIFYING_STALE_AFTER", "10m")),
		ProvisioningStaleAfter: mustDuration(getEnv("PROVISIONING_STALE_AFTER", "30m")),
		ReaperInterval:         mustDuration(getEnv("REAPER_INTERVAL", "1m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.QualifierTimeout <= 0 {
		return nil, fmt.Errorf("QUALIFIER_TIMEOUT must be a positive duration")
	}
	if cfg.CaptureRateLimit <= 0 || cfg.CaptureRateWindow <= 0 {
		return nil, fmt.Errorf("CAPTURE_RATE_LIMIT and CAPTURE_RATE_WINDOW must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
