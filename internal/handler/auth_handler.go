package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hstu-emis/admin-gateway/internal/middleware"
	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/service"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
	"github.com/hstu-emis/admin-gateway/pkg/response"
)

// AuthHandler wires HTTP endpoints to the session service.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login godoc
// @Summary Sign in
// @Description Authenticate against the EMIS backend and open a gateway session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	session, err := h.sessions.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.LoginResponse{
		SessionID: session.ID,
		User:      session.User,
	})
}

// Logout godoc
// @Summary Sign out
// @Description Blacklist the refresh token server-side (best effort) and clear the session
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	h.sessions.Logout(c.Request.Context(), session, c.ClientIP(), c.GetHeader("User-Agent"))
	response.NoContent(c)
}

// Me godoc
// @Summary Current session
// @Description Return the cached profile, role and permissions of the signed-in user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, session.User)
}
