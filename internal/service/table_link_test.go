package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

func setupTestLinker() (*TableLinker, *mockRepos, *fakeClock) {
	repo, mocks := newMockRepos()
	clock := newFakeClock()
	return NewTableLinker(repo, 24*time.Hour, nopLogger, clock.Now), mocks, clock
}

func storedTable(t *testing.T, m *mockRepos, id string) *model.CourseTable {
	t.Helper()
	table, err := m.table.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("读取课表失败: %v", err)
	}
	return table
}

func storedUser(t *testing.T, m *mockRepos, id string) *model.User {
	t.Helper()
	user, err := m.user.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("读取用户失败: %v", err)
	}
	return user
}

// ── Link 测试 ──

func TestTableLinker_Link_Success(t *testing.T) {
	linker, mocks, clock := setupTestLinker()
	seedUser(mocks, "u1")
	seedGuestTable(mocks, "t1", clock.Now().Add(time.Hour))

	user, err := linker.Link(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("Link 应成功: %v", err)
	}
	if !user.HasCourseTable("t1") {
		t.Error("返回的用户应包含课表")
	}

	table := storedTable(t, mocks, "t1")
	if !table.OwnedBy("u1") || table.ExpireTs != nil {
		t.Errorf("课表应归属 u1 且无过期时间，实际 user_id=%v expire_ts=%v", table.UserID, table.ExpireTs)
	}
	if !storedUser(t, mocks, "u1").HasCourseTable("t1") {
		t.Error("存储中的用户应包含课表")
	}
}

func TestTableLinker_Link_OwnedBySelfSkipsClaim(t *testing.T) {
	linker, mocks, _ := setupTestLinker()
	seedUser(mocks, "u1")
	owned := &model.CourseTable{ID: "t1", Name: "课表", Semester: "1141"}
	owned.Claim("u1")
	_ = mocks.table.Create(context.Background(), owned)

	if _, err := linker.Link(context.Background(), "t1", "u1"); err != nil {
		t.Fatalf("Link 应成功: %v", err)
	}
	if mocks.table.updateCalls != 0 {
		t.Errorf("已归属本人的课表不应写入，实际 Update 调用=%d", mocks.table.updateCalls)
	}
	if !storedUser(t, mocks, "u1").HasCourseTable("t1") {
		t.Error("用户课表列表应补齐")
	}
}

func TestTableLinker_Link_UserWriteFailsCompensates(t *testing.T) {
	linker, mocks, clock := setupTestLinker()
	seedUser(mocks, "u1")
	seedGuestTable(mocks, "t1", clock.Now().Add(time.Hour))
	mocks.user.updateErrs = []error{errMockStore}

	_, err := linker.Link(context.Background(), "t1", "u1")
	if !errors.Is(err, errMockStore) {
		t.Fatalf("期望返回用户写入错误，实际: %v", err)
	}
	if errors.Is(err, pkgerrors.ErrConsistency) {
		t.Error("补偿成功时不应返回 ErrConsistency")
	}

	table := storedTable(t, mocks, "t1")
	if table.UserID != nil {
		t.Errorf("补偿后课表应无归属，实际=%v", *table.UserID)
	}
	if table.ExpireTs == nil || !table.ExpireTs.After(clock.Now()) {
		t.Errorf("补偿后课表应重新设置未来的过期时间，实际=%v", table.ExpireTs)
	}
	if storedUser(t, mocks, "u1").HasCourseTable("t1") {
		t.Error("用户不应包含课表")
	}
}

func TestTableLinker_Link_CompensationFails(t *testing.T) {
	linker, mocks, clock := setupTestLinker()
	seedUser(mocks, "u1")
	seedGuestTable(mocks, "t1", clock.Now().Add(time.Hour))
	mocks.user.updateErrs = []error{errMockStore}
	errRelease := errors.New("release failed")
	mocks.table.updateErrs = []error{nil, errRelease}

	_, err := linker.Link(context.Background(), "t1", "u1")
	if !errors.Is(err, pkgerrors.ErrConsistency) {
		t.Fatalf("期望 ErrConsistency，实际: %v", err)
	}
	if !errors.Is(err, errMockStore) || !errors.Is(err, errRelease) {
		t.Errorf("错误应同时携带原因与补偿错误: %v", err)
	}
	if pkgerrors.KindOf(err) != pkgerrors.ErrConsistency {
		t.Errorf("KindOf 期望 ErrConsistency，实际=%v", pkgerrors.KindOf(err))
	}
}

func TestTableLinker_Link_SecondLinkConflict(t *testing.T) {
	linker, mocks, clock := setupTestLinker()
	seedUser(mocks, "u1")
	seedUser(mocks, "u2")
	seedGuestTable(mocks, "t1", clock.Now().Add(time.Hour))

	if _, err := linker.Link(context.Background(), "t1", "u1"); err != nil {
		t.Fatalf("首次关联应成功: %v", err)
	}
	before := storedTable(t, mocks, "t1")

	_, err := linker.Link(context.Background(), "t1", "u2")
	if !errors.Is(err, ErrTableOwnedByOther) || !errors.Is(err, pkgerrors.ErrConflict) {
		t.Errorf("期望 ErrTableOwnedByOther，实际: %v", err)
	}
	after := storedTable(t, mocks, "t1")
	if !after.OwnedBy("u1") || after.Version != before.Version {
		t.Error("冲突时课表状态不应变化")
	}
	if storedUser(t, mocks, "u2").HasCourseTable("t1") {
		t.Error("u2 不应包含课表")
	}

	_, err = linker.Link(context.Background(), "t1", "u1")
	if !errors.Is(err, ErrTableAlreadyLinked) {
		t.Errorf("重复关联期望 ErrTableAlreadyLinked，实际: %v", err)
	}
}

func TestTableLinker_Link_PreconditionOrder(t *testing.T) {
	linker, mocks, _ := setupTestLinker()
	ctx := context.Background()

	// 用户与课表都不存在时先报用户不存在
	_, err := linker.Link(ctx, "missing-table", "missing-user")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}

	seedUser(mocks, "u1")
	_, err = linker.Link(ctx, "missing-table", "u1")
	if !errors.Is(err, ErrCourseTableNotFound) {
		t.Errorf("期望 ErrCourseTableNotFound，实际: %v", err)
	}

	// 用户列表已含该课表时，先于课表存在性检查报冲突
	u := storedUser(t, mocks, "u1")
	u.CourseTables = append(u.CourseTables, "t-dangling")
	_ = mocks.user.Update(ctx, u)
	_, err = linker.Link(ctx, "t-dangling", "u1")
	if !errors.Is(err, ErrTableAlreadyLinked) {
		t.Errorf("期望 ErrTableAlreadyLinked，实际: %v", err)
	}

	if mocks.table.updateCalls != 0 {
		t.Error("前置检查失败时不应写入课表")
	}
}

func TestTableLinker_Link_VersionConflict(t *testing.T) {
	linker, mocks, clock := setupTestLinker()
	seedUser(mocks, "u1")
	seedGuestTable(mocks, "t1", clock.Now().Add(time.Hour))
	mocks.table.updateErrs = []error{pkgerrors.ErrOptimisticLock}

	_, err := linker.Link(context.Background(), "t1", "u1")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) || !errors.Is(err, pkgerrors.ErrConflict) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
	if storedUser(t, mocks, "u1").HasCourseTable("t1") {
		t.Error("课表写入失败时不应写入用户")
	}
}

// ── CreateOwned 测试 ──

func TestTableLinker_CreateOwned(t *testing.T) {
	linker, mocks, _ := setupTestLinker()
	seedUser(mocks, "u1")

	table := &model.CourseTable{ID: "t1", Name: "课表", Semester: "1141"}
	if _, err := linker.CreateOwned(context.Background(), table, "u1"); err != nil {
		t.Fatalf("CreateOwned 应成功: %v", err)
	}
	if !storedTable(t, mocks, "t1").OwnedBy("u1") || !storedUser(t, mocks, "u1").HasCourseTable("t1") {
		t.Error("课表与用户应互相关联")
	}
}

func TestTableLinker_CreateOwned_UserWriteFailsDeletesTable(t *testing.T) {
	linker, mocks, _ := setupTestLinker()
	seedUser(mocks, "u1")
	mocks.user.updateErrs = []error{errMockStore}

	table := &model.CourseTable{ID: "t1", Name: "课表", Semester: "1141"}
	_, err := linker.CreateOwned(context.Background(), table, "u1")
	if !errors.Is(err, errMockStore) {
		t.Fatalf("期望返回用户写入错误，实际: %v", err)
	}
	if _, ok := mocks.table.tables["t1"]; ok {
		t.Error("补偿后课表应被删除")
	}
}
