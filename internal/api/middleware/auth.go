package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/response"
)

// ContextAdminKey 认证通过后写入 gin.Context 的管理员用户名
const ContextAdminKey = "admin"

// JWTAuth 校验 Authorization: Bearer <token>
func JWTAuth(m *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "invalid authorization header")
			return
		}
		claims, err := m.Parse(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		c.Set(ContextAdminKey, claims.Username)
		c.Next()
	}
}
