package capture

import (
	"net/http"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/ratelimit"

	"github.com/gin-gonic/gin"
)

const (
	msgTooManyRequests = "Too many requests. Please try again in a minute."
	msgAlreadyCaptured = "Lead already captured"
	honeypotLeadID     = "captured"
)

type Handler struct {
	svc     *Service
	limiter ratelimit.Limiter
	log     *logger.Logger
}

func NewHandler(svc *Service, limiter ratelimit.Limiter, log *logger.Logger) *Handler {
	return &Handler{svc: svc, limiter: limiter, log: log}
}

// Capture stores a lead from the public form.
// POST /api/v1/leads/capture
func (h *Handler) Capture(c *gin.Context) {
	ip := httpkit.ClientIP(c.Request)
	if !h.allow(c, ip) {
		h.log.RateLimitExceeded(ip, c.Request.URL.Path)
		httpkit.Error(c, http.StatusTooManyRequests, msgTooManyRequests, nil)
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if req.Honeypot != "" {
		h.log.WebhookRejected("capture", "honeypot", ip)
		httpkit.OK(c, gin.H{"success": true, "leadId": honeypotLeadID})
		return
	}

	result, err := h.svc.Capture(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Duplicate {
		httpkit.OK(c, gin.H{"success": true, "leadId": result.LeadID, "message": msgAlreadyCaptured})
		return
	}
	httpkit.OK(c, gin.H{"success": true, "leadId": result.LeadID})
}

// allow fails open when the limiter backend is unavailable.
func (h *Handler) allow(c *gin.Context, ip string) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(c.Request.Context(), ip)
	if err != nil {
		h.log.Error("capture rate limiter unavailable", "error", err)
		return true
	}
	return ok
}
