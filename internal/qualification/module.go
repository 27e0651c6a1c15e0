package qualification

import (
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
)

// Module mounts the qualification and proposal routes.
type Module struct {
	handler *Handler
}

func NewModule(svc *Service) *Module {
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "qualification"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/leads/:id/qualify", ctx.InternalAuth, m.handler.Qualify)
	ctx.V1.POST("/leads/:id/proposal", ctx.InternalAuth, m.handler.GenerateProposal)
	ctx.V1.GET("/leads/:id/proposal", m.handler.Proposal)
}

var _ apphttp.Module = (*Module)(nil)
