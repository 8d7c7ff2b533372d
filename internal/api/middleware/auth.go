package middleware

import (
	"Signalforge/internal/pkg/logger"
	"Signalforge/internal/pkg/response"
	"Signalforge/internal/pkg/security"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID      = "user_id"
	CtxWorkspaceID = "workspace_id"
	CtxRoles       = "roles"
)

// TokenValidator 解析 Bearer Token
type TokenValidator interface {
	ValidateToken(tokenString string) (*security.OperatorClaims, error)
}

// AuthMiddleware 负责验证 JWT 并将操作者身份与工作区注入 Context
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}
		if claims.WorkspaceID == 0 {
			response.Fail(c, response.Forbidden, "Token 未绑定工作区")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxWorkspaceID, claims.WorkspaceID)
		c.Set(CtxRoles, claims.Roles)

		newCtx := context.WithValue(c.Request.Context(), logger.OperatorKey, claims.UserID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}
