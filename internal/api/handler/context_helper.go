package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// 认证中间件写入上下文的键
const (
	CtxUserID = "user_id"
	CtxRoles  = "roles"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id（Token subject）。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	if s := OptionalUserID(c); s != "" {
		return s, true
	}
	response.Unauthorized(c, 10002, "未认证")
	return "", false
}

// OptionalUserID 可选认证路由中提取 user_id，未登录时返回空字符串
func OptionalUserID(c *gin.Context) string {
	v, exists := c.Get(CtxUserID)
	if !exists {
		return ""
	}
	s, _ := v.(string)
	return s
}
