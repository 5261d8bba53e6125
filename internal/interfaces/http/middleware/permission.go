package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RequirePermission lets the request through when the token's role grants at
// least one of permissions. The role is per store, so this must run after
// RequireStoreAccess on dashboard routes.
func RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", c.GetString(RequestIDKey),
			))
			return
		}
		if claims.HasAnyPermission(permissions...) {
			c.Next()
			return
		}

		logger.GetGinLogger(c).Warn("Permission denied",
			zap.String("user_id", claims.UserID),
			zap.String("role", claims.Role),
			zap.Strings("required_any", permissions),
			zap.String("route", c.FullPath()),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden,
			"You do not have permission to perform this action",
			c.GetString(RequestIDKey),
		))
	}
}
