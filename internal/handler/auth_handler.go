package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/thoughtspace/internal/pkg/errcode"
	"github.com/xxxsen/thoughtspace/internal/pkg/jwt"
	"github.com/xxxsen/thoughtspace/internal/pkg/response"
	"github.com/xxxsen/thoughtspace/internal/service"
)

type AuthHandler struct {
	auth       *service.AuthService
	jwtSecret  []byte
	sessionTTL time.Duration
}

func NewAuthHandler(auth *service.AuthService, jwtSecret []byte, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, jwtSecret: jwtSecret, sessionTTL: sessionTTL}
}

type authRequest struct {
	// AccessToken may be empty: an anonymous caller is still a valid
	// bootstrap candidate for a brand-new thoughtspace.
	AccessToken string `json:"access_token"`
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type"`
}

// Authenticate is the handshake the session transport calls before opening
// a document session. On success it returns a session token scoped to the
// thoughtspace, which the share administration routes require.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	ok := h.auth.Authenticate(c.Request.Context(), req.AccessToken, service.ResourceDescriptor{
		Name:   req.Name,
		Params: service.SessionParams{Type: req.Type},
	})
	if !ok {
		// no detail crosses this boundary, a refused session is just refused
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
		return
	}
	token, err := jwt.GenerateToken(req.AccessToken, service.DocID(req.Name), h.jwtSecret, h.sessionTTL)
	if err != nil {
		response.Error(c, errcode.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"ok": true, "session_token": token})
}
