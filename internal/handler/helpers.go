package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/thoughtspace/internal/middleware"
	"github.com/xxxsen/thoughtspace/internal/pkg/errcode"
	appErr "github.com/xxxsen/thoughtspace/internal/pkg/errors"
	"github.com/xxxsen/thoughtspace/internal/pkg/response"
)

func sessionDocID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextDocIDKey)
	docID, _ := value.(string)
	return docID
}

// sessionMatchesDoc rejects admin calls whose session was authenticated
// against a different thoughtspace. It writes the response itself and
// reports whether the caller may proceed.
func sessionMatchesDoc(c *gin.Context, docID string) bool {
	if sessionDocID(c) != docID {
		response.Error(c, errcode.ErrUnauthorized, "session not valid for this thoughtspace")
		return false
	}
	return true
}

func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case appErr.IsShareNotFound(err):
		response.Error(c, errcode.ErrShareNotFound, err.Error())
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
