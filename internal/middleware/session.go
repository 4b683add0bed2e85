package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/thoughtspace/internal/pkg/errcode"
	"github.com/xxxsen/thoughtspace/internal/pkg/jwt"
	"github.com/xxxsen/thoughtspace/internal/pkg/response"
)

const (
	ContextAccessTokenKey = "access_token"
	ContextDocIDKey       = "docid"
)

// SessionAuth gates the share administration routes behind the session
// token minted by a successful owner authentication. The claims carry the
// thoughtspace the session authenticated against.
func SessionAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextAccessTokenKey, claims.AccessToken)
		c.Set(ContextDocIDKey, claims.DocID)
		c.Next()
	}
}
