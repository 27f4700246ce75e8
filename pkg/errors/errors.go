package errors

import (
	"errors"
	"fmt"
)

// ── 错误类别 ──
// 业务错误均包装其中之一，Handler 层按类别映射 HTTP 状态码

var (
	// ErrValidation 请求参数不合法（过滤条件格式错误、ID 数量超限等），不应重试
	ErrValidation = errors.New("参数校验失败")
	// ErrNotFound 用户、课表或课程不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrConflict 状态冲突（已关联、归属不一致等）
	ErrConflict = errors.New("状态冲突")
	// ErrForbidden 当前状态下不允许访问（非当前学期、已过期、非本人）
	ErrForbidden = errors.New("无权访问")
	// ErrUpstreamUnavailable 外部实时数据源不可用，由缓存层就地降级，不向调用方暴露
	ErrUpstreamUnavailable = errors.New("上游数据源不可用")
	// ErrConsistency 补偿写入失败，两个聚合之间已出现不一致，需人工介入
	ErrConsistency = errors.New("数据不一致")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = New(ErrConflict, "数据已被其他操作修改，请刷新后重试")

// kindError 带类别的业务错误
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New 创建归属于 kind 类别的业务错误，errors.Is(err, kind) 为 true
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Newf 同 New，支持格式化消息
func Newf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误所属类别；未归类的错误返回 nil
func KindOf(err error) error {
	for _, kind := range []error{
		ErrConsistency,
		ErrValidation,
		ErrNotFound,
		ErrConflict,
		ErrForbidden,
		ErrUpstreamUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
