package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/jwt"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// 与 handler 包的上下文键保持一致
const (
	ctxUserID = "user_id"
	ctxRoles  = "roles"
)

// bearerToken 解析 Authorization 头；未携带时返回空字符串
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", true
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authenticate 校验 Token 并注入 user_id 与 roles
func authenticate(c *gin.Context, jwtMgr *jwt.Manager, token string) bool {
	claims, err := jwtMgr.ParseToken(token)
	if err != nil {
		msg := "Token 无效"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Token 已过期"
		}
		response.Unauthorized(c, 10002, msg)
		c.Abort()
		return false
	}

	c.Set(ctxUserID, claims.Subject)
	c.Set(ctxRoles, claims.Roles)
	return true
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Token，subject 即用户 ID
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}
		if token == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}
		if !authenticate(c, jwtMgr, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选认证：未携带 Token 时以匿名身份继续，携带无效 Token 时拒绝
func OptionalAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}
		if token != "" && !authenticate(c, jwtMgr, token) {
			return
		}
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一，须在 JWTAuth 之后使用
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ctxRoles)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		roles, _ := v.([]string)
		for _, r := range allowedRoles {
			if slices.Contains(roles, r) {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
