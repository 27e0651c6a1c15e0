package provisioning

import (
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
)

// Module mounts the admin provisioning routes.
type Module struct {
	handler *Handler
}

func NewModule(svc *Service) *Module {
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "provisioning"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/leads/:id/provisioning/retry", m.handler.Retry)
	ctx.Admin.GET("/leads/:id/provisioning", m.handler.History)
}

var _ apphttp.Module = (*Module)(nil)
