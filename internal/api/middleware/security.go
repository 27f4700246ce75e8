package middleware

import (
	"github.com/gin-gonic/gin"
)

// securityHeaders 本服务只返回 JSON 与下载文件，CSP 不放行任何资源
var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// SecurityHeaders 安全 HTTP 头中间件
// 携带认证头的响应包含个人资料，禁止共享缓存保存
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range securityHeaders {
			c.Header(h[0], h[1])
		}
		if c.GetHeader("Authorization") != "" {
			c.Header("Cache-Control", "private, no-store")
		}

		c.Next()
	}
}
