package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/application/command"
	"github.com/geniibooks/entitlements/internal/application/dto"
	appmiddleware "github.com/geniibooks/entitlements/internal/application/middleware"
	"github.com/geniibooks/entitlements/internal/infrastructure/logging"
	"github.com/geniibooks/entitlements/internal/interfaces/http/response"
)

// SessionHandler handles login and logout
type SessionHandler struct {
	sessionCmd    *command.SessionCommand
	jwtMiddleware *appmiddleware.JWTMiddleware
	logger        *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionCmd *command.SessionCommand, jwtMiddleware *appmiddleware.JWTMiddleware) *SessionHandler {
	return &SessionHandler{
		sessionCmd:    sessionCmd,
		jwtMiddleware: jwtMiddleware,
		logger:        logging.Logger,
	}
}

// Login binds the identity to the billing gateway and issues a token. A
// gateway outage does not fail the login; the response carries
// sync_pending instead.
// @Summary Log in and bind the identity
// @Tags session
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} response.SuccessResponse{data=dto.LoginResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "identity_id is required")
		return
	}

	syncPending, err := h.sessionCmd.Login(c.Request.Context(), req.IdentityID, req.Attributes)
	if err != nil {
		h.logger.Error("login failed", zap.String("identity_id", req.IdentityID), zap.Error(err))
		response.InternalError(c, "Failed to log in")
		return
	}

	token, _, err := h.jwtMiddleware.GenerateAccessToken(req.IdentityID)
	if err != nil {
		response.InternalError(c, "Failed to issue token")
		return
	}

	response.OK(c, dto.LoginResponse{
		IdentityID:  req.IdentityID,
		AccessToken: token,
		ExpiresIn:   int64(h.jwtMiddleware.AccessTTL().Seconds()),
		SyncPending: syncPending,
	})
}

// Logout unbinds the identity, clears subscription state and revokes the
// session token.
// @Summary Log out
// @Tags session
// @Produce json
// @Security Bearer
// @Success 204
// @Router /session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessionCmd.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.InternalError(c, "Failed to log out")
		return
	}

	if jti := c.GetString("jti"); jti != "" {
		if err := h.jwtMiddleware.RevokeToken(c.Request.Context(), jti, h.jwtMiddleware.AccessTTL()); err != nil {
			h.logger.Warn("failed to revoke token", zap.Error(err))
		}
	}

	response.NoContent(c)
}
