// Package http holds the composition types shared by cmd/api and the router:
// the App assembled in main and the Module contract each domain implements.
package http

import (
	"context"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.InternalAPIConfig
}

// HealthChecker backs the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is populated by main.go and passed to the router.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	// WebhookLimiter throttles /api/webhooks per client IP when set.
	WebhookLimiter *httpkit.IPRateLimiter
	Modules        []Module
}

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups and shared middleware.
type RouterContext struct {
	Engine *gin.Engine
	// Webhooks is /api/webhooks; handlers there always answer 200.
	Webhooks *gin.RouterGroup
	V1       *gin.RouterGroup
	// Admin is /api/v1/admin behind JWT and the admin role.
	Admin  *gin.RouterGroup
	Config config.JWTConfig
	// InternalAuth checks the x-internal-secret header.
	InternalAuth gin.HandlerFunc
}
