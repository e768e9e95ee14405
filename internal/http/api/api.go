// Package api registers the JSON action endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub/teamhub/internal/auth"
	"github.com/teamhub/teamhub/internal/config"
	"github.com/teamhub/teamhub/internal/http/api/handlers"
)

// Dependencies are the services the endpoints run on. Passkeys may be nil.
type Dependencies struct {
	Accounts *auth.Service
	Passkeys *auth.PasskeyService
	JWT      config.JWTConfig
}

// RegisterRoutes mounts /api/auth, /api/signup, /api/settings and /healthz.
func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.Accounts == nil {
		return
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := r.Group("/api")
	group.Use(corsMiddleware())

	sessions := handlers.NewSessions(deps.JWT)
	authHandler := handlers.NewAuthHandler(deps.Accounts, sessions)
	signupHandler := handlers.NewSignupHandler(deps.Accounts)
	settingsHandler := handlers.NewSettingsHandler(deps.Accounts, deps.Passkeys, sessions)

	for path, actions := range map[string]map[string]handlers.ActionFunc{
		"/auth":     authHandler.Actions(),
		"/signup":   signupHandler.Actions(),
		"/settings": settingsHandler.Actions(),
	} {
		group.POST(path, handlers.Dispatch(actions))
		group.OPTIONS(path, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}

// corsMiddleware opens the API to any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
