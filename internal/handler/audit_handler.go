package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hstu-emis/admin-gateway/internal/repository"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
	"github.com/hstu-emis/admin-gateway/pkg/response"
)

// AuditHandler exposes the gateway's audit trail to administrators.
type AuditHandler struct {
	repo *repository.AuditRepository
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(repo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// List godoc
// @Summary List recent audit entries
// @Tags Audit
// @Produce json
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries"))
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
