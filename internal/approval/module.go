package approval

import (
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

// Module mounts the Telegram callback webhook and the internal approve route.
type Module struct {
	handler *Handler
}

func NewModule(svc *Service, answerer CallbackAnswerer, cfg config.TelegramConfig, log *logger.Logger) *Module {
	if cfg.GetTelegramWebhookSecret() == "" {
		log.Warn("TELEGRAM_WEBHOOK_SECRET not set, telegram webhook is unauthenticated")
	}
	return &Module{handler: NewHandler(svc, answerer, cfg.GetTelegramWebhookSecret(), log)}
}

func (m *Module) Name() string {
	return "approval"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/telegram", m.handler.HandleTelegramWebhook)
	ctx.V1.POST("/leads/:id/approve", ctx.InternalAuth, m.handler.Approve)
}

var _ apphttp.Module = (*Module)(nil)
