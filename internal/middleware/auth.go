package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
)

// ConfigMiddleware exposes the live config to handlers and the auth check.
// The pointer is read on every request so a reload takes effect at once.
func ConfigMiddleware(current func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(util.ContextConfigKey, current())
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware validates the identity provider's token and stores its
// claims under util.ContextUserKey. Tokens without an institution are
// rejected since every resource is institution scoped.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		cfg, ok := c.MustGet(util.ContextConfigKey).(*config.Config)
		if !ok {
			util.InternalServerError(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("Rejected token",
				zap.String("path", c.FullPath()),
				zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if claims.InstitutionID == 0 {
			util.Forbidden(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// RoleMiddleware admits the listed roles. Admins always pass.
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if user.Role == model.Admin {
			c.Next()
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		logger.Log.Info("Role check failed",
			zap.Uint("userID", user.UserID),
			zap.String("role", string(user.Role)),
			zap.String("path", c.FullPath()))
		util.Forbidden(c)
		c.Abort()
	}
}
