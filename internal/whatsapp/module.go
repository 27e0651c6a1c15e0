// Package whatsapp provides the WhatsApp Cloud API client and the inbound
// message webhook that feeds the intake conversation.
package whatsapp

import (
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

// Module is the WhatsApp webhook module implementing http.Module.
type Module struct {
	handler   *Handler
	appSecret string
	log       *logger.Logger
}

// NewModule wires the webhook to a message processor.
func NewModule(processor MessageProcessor, cfg config.WhatsAppConfig, log *logger.Logger) *Module {
	if cfg.GetWhatsAppAppSecret() == "" {
		log.Warn("WHATSAPP_APP_SECRET not set, webhook signatures are not verified")
	}
	return &Module{
		handler:   NewHandler(processor, cfg.GetWhatsAppVerifyToken(), log),
		appSecret: cfg.GetWhatsAppAppSecret(),
		log:       log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "whatsapp"
}

// RegisterRoutes mounts the Meta webhook routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.GET("/whatsapp", m.handler.HandleVerify)
	ctx.Webhooks.POST("/whatsapp", SignatureRequired(m.appSecret, m.log), m.handler.HandleWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
