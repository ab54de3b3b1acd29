package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/utils"
)

const userEmailKey = "user_email"

// Identity reads an optional bearer token. A valid token puts its email in
// the request context; a missing or invalid one leaves the request
// anonymous and never rejects it.
func Identity(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}

		claims, err := utils.ParseIdentityToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Debug("ignoring invalid identity token", zap.Error(err))
			c.Next()
			return
		}
		c.Set(userEmailKey, claims.Email)
		c.Next()
	}
}

// UserEmail returns the authenticated email, or "" for anonymous requests.
func UserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}
