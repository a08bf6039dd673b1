package middleware

import (
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
}

// RequireAdmin allows only administrative principals (rank 1 or 2).
// It must run after JWTAuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return RequireAdminWithConfig(PermissionConfig{})
}

// RequireAdminWithConfig is RequireAdmin with custom config
func RequireAdminWithConfig(cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !p.IsAdmin() {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Administrator route denied",
					zap.Int64("user_id", p.UserID),
					zap.Int("role_rank", p.RoleRank),
					zap.String("path", c.Request.URL.Path),
				)
			}
			abortWithError(c, dto.ErrCodeForbidden, "Administrator role required")
			return
		}
		c.Next()
	}
}
