package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// CodeBodyTooLarge 请求体超限错误码
const CodeBodyTooLarge = 10005

// BodyLimit 请求体大小限制中间件
//
// Content-Length 已知且超限时直接返回 413；长度未知时由 MaxBytesReader 在读取时截断，
// 读取方收到 *http.MaxBytesError。可在路由组上叠加更小的上限。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
