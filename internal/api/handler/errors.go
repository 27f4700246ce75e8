package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/response"
)

// 跨模块错误码
const (
	codeConsistency = 50001
	// 与 middleware.CodeBodyTooLarge 一致
	codeBodyTooLarge = 10005
)

// respondKind 按错误类别兜底映射 HTTP 状态码
// 模块错误码 base 之上：+1 参数错误，+3 禁止访问，+4 不存在，+9 冲突
//
// 错误同时写入 c.Errors，由日志中间件按状态码级别记录
func respondKind(c *gin.Context, err error, base int) {
	_ = c.Error(err)
	switch pkgerrors.KindOf(err) {
	case pkgerrors.ErrConsistency:
		response.Error(c, http.StatusInternalServerError, codeConsistency, "数据不一致，请联系管理员")
	case pkgerrors.ErrValidation:
		response.BadRequest(c, base+1, err.Error())
	case pkgerrors.ErrForbidden:
		response.Forbidden(c, base+3, err.Error())
	case pkgerrors.ErrNotFound:
		response.NotFound(c, base+4, err.Error())
	case pkgerrors.ErrConflict:
		response.Conflict(c, base+9, err.Error())
	case pkgerrors.ErrUpstreamUnavailable:
		response.Error(c, http.StatusServiceUnavailable, base+10, err.Error())
	default:
		response.InternalError(c)
	}
}

// isConsistency 补偿失败的错误同时携带原始原因，必须先于具体错误判断
func isConsistency(err error) bool {
	return pkgerrors.KindOf(err) == pkgerrors.ErrConsistency
}

// bindError 请求体绑定失败，校验详情放入 details
// 请求体在读取中超出上限时返回 413
func bindError(c *gin.Context, code int, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", err.Error())
}
