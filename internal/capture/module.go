package capture

import (
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/ratelimit"
)

// Module mounts the public lead capture route.
type Module struct {
	handler *Handler
}

func NewModule(svc *Service, limiter ratelimit.Limiter, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(svc, limiter, log)}
}

func (m *Module) Name() string {
	return "capture"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/leads/capture", m.handler.Capture)
}

var _ apphttp.Module = (*Module)(nil)
