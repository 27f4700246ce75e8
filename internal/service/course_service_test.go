package service

import (
	"context"
	"errors"
	"testing"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/query"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

func setupTestCourseService(courses ...model.Course) (CourseService, *mockRepos) {
	repo, mocks := newMockRepos()
	mocks.course = newMockCourseRepo(courses...)
	repo.Course = mocks.course
	return NewCourseService(repo, testCourseConfig(), nopLogger), mocks
}

func courseIDs(courses []*dto.CourseResponse) []string {
	ids := make([]string, len(courses))
	for i, c := range courses {
		if c != nil {
			ids[i] = c.ID
		}
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ── FetchByIDs 测试 ──

func TestCourseService_FetchByIDs_EmptySkipsStore(t *testing.T) {
	svc, mocks := setupTestCourseService(testCourse("1141_A", "微积分"))

	for _, preserve := range []bool{true, false} {
		got, err := svc.FetchByIDs(context.Background(), nil, preserve)
		if err != nil {
			t.Fatalf("FetchByIDs 应成功: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("期望空列表，实际=%v", got)
		}
	}
	if mocks.course.findCalls != 0 {
		t.Errorf("空 ID 列表不应访问存储，实际调用 %d 次", mocks.course.findCalls)
	}
}

func TestCourseService_FetchByIDs_PreserveOrder(t *testing.T) {
	svc, mocks := setupTestCourseService(
		testCourse("1141_A", "微积分"),
		testCourse("1141_B", "普通物理"),
		testCourse("1141_C", "程序设计"),
	)

	ids := []string{"1141_C", "1141_X", "1141_A", "1141_C"}
	got, err := svc.FetchByIDs(context.Background(), ids, true)
	if err != nil {
		t.Fatalf("FetchByIDs 应成功: %v", err)
	}
	if mocks.course.findCalls != 1 {
		t.Errorf("期望只查询一次存储，实际=%d", mocks.course.findCalls)
	}
	if len(got) != len(ids) {
		t.Fatalf("期望结果长度=%d，实际=%d", len(ids), len(got))
	}
	if got[1] != nil {
		t.Errorf("不存在的 ID 对应位置应为 nil，实际=%v", got[1])
	}
	want := []string{"1141_C", "", "1141_A", "1141_C"}
	if !equalStrings(courseIDs(got), want) {
		t.Errorf("期望顺序=%v，实际=%v", want, courseIDs(got))
	}
}

func TestCourseService_FetchByIDs_StoreOrder(t *testing.T) {
	svc, _ := setupTestCourseService(
		testCourse("1141_A", "微积分"),
		testCourse("1141_B", "普通物理"),
	)

	got, err := svc.FetchByIDs(context.Background(), []string{"1141_B", "1141_X", "1141_A"}, false)
	if err != nil {
		t.Fatalf("FetchByIDs 应成功: %v", err)
	}
	if want := []string{"1141_A", "1141_B"}; !equalStrings(courseIDs(got), want) {
		t.Errorf("期望存储顺序=%v，实际=%v", want, courseIDs(got))
	}
}

func TestRequireAll(t *testing.T) {
	svc, _ := setupTestCourseService(testCourse("1141_A", "微积分"))

	ids := []string{"1141_A", "1141_X"}
	got, _ := svc.FetchByIDs(context.Background(), ids, true)
	err := RequireAll(ids, got)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}

	got, _ = svc.FetchByIDs(context.Background(), ids[:1], true)
	if err := RequireAll(ids[:1], got); err != nil {
		t.Errorf("全部存在时应通过: %v", err)
	}
}

// ── GetByIDs 测试 ──

func TestCourseService_GetByIDs_RequestLimit(t *testing.T) {
	svc, _ := setupTestCourseService()

	ids := make([]string, testCourseConfig().RequestLimit)
	for i := range ids {
		ids[i] = "1141_A"
	}
	_, err := svc.GetByIDs(context.Background(), ids, true)
	if !errors.Is(err, ErrTooManyCourseIDs) {
		t.Errorf("期望 ErrTooManyCourseIDs，实际: %v", err)
	}

	_, err = svc.GetByIDs(context.Background(), ids[:len(ids)-1], true)
	if err != nil {
		t.Errorf("未达上限时应成功: %v", err)
	}
}

// ── GetByID 测试 ──

func TestCourseService_GetByID(t *testing.T) {
	c := testCourse("1141_A", "微积分", model.CourseSchedule{Weekday: 1, Interval: "3", Location: "新202"})
	c.DepartmentsRaw = []string{"数学系"}
	c.Prerequisites = []model.CoursePrerequisite{{CourseID: "1141_A", PreCourseID: "1132_Z"}}
	svc, _ := setupTestCourseService(c)

	got, err := svc.GetByID(context.Background(), "1141_A")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if len(got.Departments) != 1 || got.Departments[0].ID != nil || got.Departments[0].NameFull != "数学系" {
		t.Errorf("原始系所名称应转为无 ID 的系所记录，实际=%+v", got.Departments)
	}
	if len(got.Schedules) != 1 || got.Schedules[0].Interval != "3" {
		t.Errorf("上课时段展开错误: %+v", got.Schedules)
	}
	if !equalStrings(got.Prerequisites, []string{"1132_Z"}) {
		t.Errorf("先修课程展开错误: %v", got.Prerequisites)
	}

	_, err = svc.GetByID(context.Background(), "1141_X")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

// ── Search 测试 ──

func TestCourseService_Search(t *testing.T) {
	svc, _ := setupTestCourseService(
		testCourse("1141_A", "微积分甲", model.CourseSchedule{Weekday: 1, Interval: "3"}),
		testCourse("1141_B", "微积分乙", model.CourseSchedule{Weekday: 2, Interval: "3"}),
		testCourse("1141_C", "普通物理", model.CourseSchedule{Weekday: 1, Interval: "3"}),
		testCourse("1142_D", "微积分丙", model.CourseSchedule{Weekday: 1, Interval: "3"}),
	)

	tests := []struct {
		name      string
		req       dto.CourseSearchRequest
		wantIDs   []string
		wantTotal int64
	}{
		{
			name:      "关键字限定当前学期",
			req:       dto.CourseSearchRequest{Keyword: "微积分", Fields: []string{query.FieldName}},
			wantIDs:   []string{"1141_A", "1141_B"},
			wantTotal: 2,
		},
		{
			name:      "指定学期",
			req:       dto.CourseSearchRequest{Keyword: "微积分", Fields: []string{query.FieldName}, Semester: "1142"},
			wantIDs:   []string{"1142_D"},
			wantTotal: 1,
		},
		{
			name: "时段过滤",
			req: dto.CourseSearchRequest{
				Fields: []string{query.FieldName},
				Filter: query.Filter{Time: [][]string{{"3"}}},
			},
			wantIDs:   []string{"1141_A", "1141_C"},
			wantTotal: 2,
		},
		{
			name:      "分页不影响总数",
			req:       dto.CourseSearchRequest{Fields: []string{query.FieldName}, Offset: 1, BatchSize: 1},
			wantIDs:   []string{"1141_B"},
			wantTotal: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(context.Background(), &tt.req)
			if err != nil {
				t.Fatalf("Search 应成功: %v", err)
			}
			if !equalStrings(courseIDs(got.Courses), tt.wantIDs) {
				t.Errorf("期望=%v，实际=%v", tt.wantIDs, courseIDs(got.Courses))
			}
			if got.TotalCount != tt.wantTotal {
				t.Errorf("期望 total=%d，实际=%d", tt.wantTotal, got.TotalCount)
			}
		})
	}
}

func TestCourseService_Search_InvalidFields(t *testing.T) {
	svc, _ := setupTestCourseService()

	_, err := svc.Search(context.Background(), &dto.CourseSearchRequest{Keyword: "x", Fields: []string{"password"}})
	if !errors.Is(err, ErrInvalidKeywordFields) {
		t.Errorf("期望 ErrInvalidKeywordFields，实际: %v", err)
	}

	_, err = svc.Search(context.Background(), &dto.CourseSearchRequest{
		Fields: []string{query.FieldName},
		Filter: query.Filter{EnrollMethod: []string{"abc"}},
	})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("无效加选方式期望 ErrValidation，实际: %v", err)
	}
}
