package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hstu-emis/admin-gateway/internal/middleware"
	"github.com/hstu-emis/admin-gateway/internal/service"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
	"github.com/hstu-emis/admin-gateway/pkg/response"
)

// RecordHandler serves student profiles and academic record projections.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler creates a new handler.
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// GetStudent godoc
// @Summary Get student profile
// @Tags Students
// @Produce json
// @Param username path string true "Student username"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{username} [get]
func (h *RecordHandler) GetStudent(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.records.FetchStudent(c.Request.Context(), session, c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// ListRecords godoc
// @Summary List academic records
// @Description Return the record list with the server-computed CGPA and credit aggregates, optionally filtered by a free-text search
// @Tags Academic Records
// @Produce json
// @Param username path string true "Student username"
// @Param search query string false "Free-text filter"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{username}/academic-records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.records.FetchStudent(c.Request.Context(), session, c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}

	bundle, err := h.records.FetchRecords(c.Request.Context(), session, student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	bundle.Records = h.records.Search(bundle.Records, c.Query("search"))

	response.JSON(c, http.StatusOK, bundle, map[string]interface{}{
		"student": student.Username,
		"count":   len(bundle.Records),
	})
}
