package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	processTimeout = 25 * time.Second
	seenTTL        = 10 * time.Minute
	seenMaxSize    = 10000
)

// MessageProcessor consumes one inbound message. intake.Service implements it.
type MessageProcessor interface {
	HandleMessage(ctx context.Context, phone, text, messageID string) (string, error)
}

// Handler serves the Meta webhook endpoints.
type Handler struct {
	processor   MessageProcessor
	verifyToken string
	seen        *seenSet
	log         *logger.Logger
}

func NewHandler(processor MessageProcessor, verifyToken string, log *logger.Logger) *Handler {
	return &Handler{
		processor:   processor,
		verifyToken: verifyToken,
		seen:        newSeenSet(seenTTL, seenMaxSize),
		log:         log,
	}
}

// HandleVerify answers the subscription handshake.
// GET /api/webhooks/whatsapp
func (h *Handler) HandleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	h.log.WebhookRejected("whatsapp", "verification failed", httpkit.ClientIP(c.Request))
	c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
}

// HandleWebhook processes inbound messages. Once the payload parses, the
// response is always 200 so Meta does not redeliver.
// POST /api/webhooks/whatsapp
func (h *Handler) HandleWebhook(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.WebhookRejected("whatsapp", "malformed payload", httpkit.ClientIP(c.Request))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), processTimeout)
	defer cancel()
	h.process(ctx, payload)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) process(ctx context.Context, payload WebhookPayload) {
	log := h.log.WithContext(ctx)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				text := message.Body()
				if text == "" {
					log.Debug("ignoring unsupported whatsapp message", "type", message.Type, "message_id", message.ID)
					continue
				}
				if h.seen.Mark(message.ID) {
					log.Info("duplicate whatsapp delivery skipped", "message_id", message.ID)
					continue
				}
				if _, err := h.processor.HandleMessage(ctx, message.From, text, message.ID); err != nil {
					log.Error("failed to process whatsapp message", "message_id", message.ID, "error", err)
				}
			}
		}
	}
}

func rawBody(c *gin.Context) ([]byte, bool) {
	if value, exists := c.Get(rawBodyKey); exists {
		if body, ok := value.([]byte); ok {
			return body, true
		}
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		return nil, false
	}
	return body, true
}
