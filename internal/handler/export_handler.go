package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hstu-emis/admin-gateway/internal/middleware"
	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/service"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
	"github.com/hstu-emis/admin-gateway/pkg/response"
)

var contentTypes = map[models.ExportFormat]string{
	models.ExportFormatPDF: "application/pdf",
	models.ExportFormatCSV: "text/csv",
}

// ExportHandler serves transcript exports, inline and queued.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Export academic records inline
// @Description Render the transcript and stream it as a file download
// @Tags Exports
// @Produce application/pdf
// @Param username path string true "Student username"
// @Param format query string false "pdf or csv (default pdf)"
// @Param search query string false "Free-text filter applied before export"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /students/{username}/academic-records/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := models.ExportRequest{
		Format: models.ExportFormat(c.DefaultQuery("format", string(models.ExportFormatPDF))),
		Query:  c.Query("search"),
	}

	payload, filename, err := h.exports.Render(c.Request.Context(), session, c.Param("username"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentTypes[req.Format], payload)
}

// CreateJob godoc
// @Summary Queue an export job
// @Tags Exports
// @Accept json
// @Produce json
// @Param username path string true "Student username"
// @Param payload body models.ExportRequest true "Export parameters"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{username}/academic-records/export-jobs [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	job, err := h.exports.CreateJob(c.Request.Context(), session, c.Param("username"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// JobStatus godoc
// @Summary Poll an export job
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export-jobs/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.exports.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	// Jobs are visible to their creator and to administrators.
	if job.SessionID != session.ID && session.Role() != models.RoleAdministrator {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// DownloadArtifact godoc
// @Summary Download a finished export by signed token
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) DownloadArtifact(c *gin.Context) {
	file, name, err := h.exports.OpenArtifact(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
