package provisioning

import (
	"net/http"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves the admin provisioning endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Retry re-runs provisioning for a lead whose last attempt failed.
// POST /api/v1/admin/leads/:id/provisioning/retry
func (h *Handler) Retry(c *gin.Context) {
	job, err := h.svc.Retry(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"job": job})
}

// History lists jobs and activity for a lead.
// GET /api/v1/admin/leads/:id/provisioning
func (h *Handler) History(c *gin.Context) {
	history, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, history)
}
