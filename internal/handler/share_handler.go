package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/thoughtspace/internal/model"
	"github.com/xxxsen/thoughtspace/internal/pkg/errcode"
	"github.com/xxxsen/thoughtspace/internal/pkg/response"
	"github.com/xxxsen/thoughtspace/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

// payload field names match the wire protocol of the admin command channel
type addShareRequest struct {
	Auth        string `json:"auth"`
	AccessToken string `json:"accessToken" binding:"required"`
	DocID       string `json:"docid" binding:"required"`
	Name        string `json:"name"`
	Role        string `json:"role" binding:"required"`
}

type updateShareRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
	DocID       string `json:"docid" binding:"required"`
	Name        string `json:"name"`
	Role        string `json:"role" binding:"required"`
}

type deleteShareRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
	DocID       string `json:"docid" binding:"required"`
}

func (h *ShareHandler) Add(c *gin.Context) {
	var req addShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if !sessionMatchesDoc(c, req.DocID) {
		return
	}
	role, ok := parseRole(req.Role)
	if !ok {
		response.Error(c, errcode.ErrInvalid, "invalid role")
		return
	}
	if err := h.shares.Add(c.Request.Context(), req.Auth, req.AccessToken, req.DocID, req.Name, role); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *ShareHandler) Update(c *gin.Context) {
	var req updateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if !sessionMatchesDoc(c, req.DocID) {
		return
	}
	role, ok := parseRole(req.Role)
	if !ok {
		response.Error(c, errcode.ErrInvalid, "invalid role")
		return
	}
	if err := h.shares.Update(c.Request.Context(), req.AccessToken, req.DocID, req.Name, role); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *ShareHandler) Delete(c *gin.Context) {
	var req deleteShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if !sessionMatchesDoc(c, req.DocID) {
		return
	}
	if err := h.shares.Delete(c.Request.Context(), req.AccessToken, req.DocID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func parseRole(value string) (model.Role, bool) {
	switch model.Role(value) {
	case model.RoleOwner:
		return model.RoleOwner, true
	default:
		return "", false
	}
}
