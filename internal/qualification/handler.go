package qualification

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Qualify runs the qualifier for a pending lead.
// POST /api/v1/leads/:id/qualify
func (h *Handler) Qualify(c *gin.Context) {
	result, err := h.svc.Qualify(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrQualificationFailed) {
		httpkit.Error(c, http.StatusInternalServerError, "Qualification failed. Will retry.", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	if result.AlreadyProcessed {
		httpkit.OK(c, gin.H{
			"success": false,
			"message": fmt.Sprintf("Lead already %s", result.Status),
		})
		return
	}
	httpkit.OK(c, gin.H{
		"success":       true,
		"status":        result.Status,
		"qualification": result.Assessment,
	})
}

// GenerateProposal writes the proposal for a qualified lead.
// POST /api/v1/leads/:id/proposal
func (h *Handler) GenerateProposal(c *gin.Context) {
	if httpkit.HandleError(c, h.svc.GenerateProposal(c.Request.Context(), c.Param("id"))) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

// Proposal reports the proposal status for a lead.
// GET /api/v1/leads/:id/proposal
func (h *Handler) Proposal(c *gin.Context) {
	view, err := h.svc.Proposal(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, view)
}
