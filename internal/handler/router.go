package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/thoughtspace/internal/middleware"
)

type RouterDeps struct {
	Auth           *AuthHandler
	Shares         *ShareHandler
	JWTSecret      []byte
	AuthRateWindow time.Duration
}

// RegisterRoutes wires the handshake and the three share administration
// operations. The admin set is closed; new operations are added here, not
// dispatched dynamically.
func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth", middleware.RateLimit(deps.AuthRateWindow), deps.Auth.Authenticate)

	shareGroup := api.Group("/share")
	shareGroup.Use(middleware.SessionAuth(deps.JWTSecret))
	shareGroup.POST("/add", deps.Shares.Add)
	shareGroup.POST("/update", deps.Shares.Update)
	shareGroup.POST("/delete", deps.Shares.Delete)
}
