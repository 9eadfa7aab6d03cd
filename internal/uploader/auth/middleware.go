package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const tokenContextKey = "storage_token"

// RequireSession rejects requests without a valid session cookie with 401
// before any handler work happens, and stores the bearer credential for
// TokenFromContext.
func RequireSession(sessions *Sessions, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("auth_middleware")
	return func(c *gin.Context) {
		token, err := sessions.CurrentToken(c.Request)
		if err != nil {
			logger.Debug("Request without valid session", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Storage account not connected. Please authorize first.",
			})
			return
		}
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// TokenFromContext returns the credential stored by RequireSession.
func TokenFromContext(c *gin.Context) (string, bool) {
	token := c.GetString(tokenContextKey)
	return token, token != ""
}
