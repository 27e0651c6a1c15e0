package approval

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	callbackTimeout      = 3 * time.Minute
)

// CallbackAnswerer acknowledges Telegram callback queries.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type Handler struct {
	svc           *Service
	answerer      CallbackAnswerer
	webhookSecret string
	log           *logger.Logger
}

func NewHandler(svc *Service, answerer CallbackAnswerer, webhookSecret string, log *logger.Logger) *Handler {
	return &Handler{svc: svc, answerer: answerer, webhookSecret: webhookSecret, log: log}
}

// HandleTelegramWebhook applies inline keyboard decisions. Once authenticated
// it always answers 200 so Telegram does not redeliver.
// POST /api/webhooks/telegram
func (h *Handler) HandleTelegramWebhook(c *gin.Context) {
	if h.webhookSecret != "" {
		provided := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
			h.log.WebhookRejected("telegram", "invalid secret token", httpkit.ClientIP(c.Request))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&update); err != nil {
		h.log.WebhookRejected("telegram", "malformed payload", httpkit.ClientIP(c.Request))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if update.CallbackQuery == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), callbackTimeout)
	defer cancel()

	query := update.CallbackQuery
	answer := h.svc.HandleCallback(ctx, query.Data)
	if h.answerer != nil {
		if err := h.answerer.AnswerCallback(ctx, query.ID, answer); err != nil {
			h.log.WithContext(ctx).Warn("failed to answer telegram callback", "callback_id", query.ID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Approve moves a qualified lead to approved.
// POST /api/v1/leads/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	lead, err := h.svc.Approve(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"success": true,
		"message": "Lead " + lead.ID + " approved for provisioning",
		"status":  lead.QualificationStatus,
	})
}
