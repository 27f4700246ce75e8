package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_WrapsKind(t *testing.T) {
	err := New(ErrNotFound, "用户不存在")
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("期望 errors.Is(err, ErrNotFound)")
	}
	if err.Error() != "用户不存在" {
		t.Errorf("期望消息=用户不存在，实际=%s", err.Error())
	}
}

func TestOptimisticLock_IsConflict(t *testing.T) {
	wrapped := fmt.Errorf("更新课表: %w", ErrOptimisticLock)
	if !errors.Is(wrapped, ErrConflict) {
		t.Error("ErrOptimisticLock 应归类为 ErrConflict")
	}
	if KindOf(wrapped) != ErrConflict {
		t.Errorf("KindOf 期望 ErrConflict，实际=%v", KindOf(wrapped))
	}
}

func TestKindOf_ConsistencyWins(t *testing.T) {
	// 补偿失败的错误同时携带原始冲突，类别必须是 ErrConsistency
	err := errors.Join(New(ErrConsistency, "补偿失败"), New(ErrConflict, "冲突"))
	if KindOf(err) != ErrConsistency {
		t.Errorf("期望 ErrConsistency，实际=%v", KindOf(err))
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("db down")) != nil {
		t.Error("未归类错误应返回 nil")
	}
}
