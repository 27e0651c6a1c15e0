package whatsapp

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
	rawBodyKey      = "whatsappRawBody"
	maxWebhookBody  = 1 << 20
)

// SignatureRequired verifies X-Hub-Signature-256 over the raw body when an app
// secret is configured. The raw body stays readable for the handler.
func SignatureRequired(appSecret string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(rawBodyKey, body)

		if appSecret == "" {
			c.Next()
			return
		}

		signature := c.GetHeader(signatureHeader)
		if signature == "" {
			log.WebhookRejected("whatsapp", "missing signature", httpkit.ClientIP(c.Request))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing signature"})
			return
		}
		if !ValidSignature(appSecret, body, signature) {
			log.WebhookRejected("whatsapp", "invalid signature", httpkit.ClientIP(c.Request))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		c.Next()
	}
}

// ValidSignature compares "sha256=<hex>" against the HMAC of body in constant time.
func ValidSignature(appSecret string, body []byte, signature string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(provided, Sign(appSecret, body))
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(appSecret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return mac.Sum(nil)
}
