package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/query"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// 所有 mock 读写均复制数据，模拟数据库行为：调用方修改返回值不影响存储

var errMockStore = errors.New("mock: 存储写入失败")

// popErr 取出队首注入错误；队列为空时返回 nil
func popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses   map[string]model.Course
	findCalls int
}

func newMockCourseRepo(courses ...model.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: make(map[string]model.Course)}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

// sorted 存储顺序：按 ID 升序
func (m *mockCourseRepo) sorted() []model.Course {
	result := make([]model.Course, 0, len(m.courses))
	for _, c := range m.courses {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) FindByIDs(_ context.Context, ids []string) ([]model.Course, error) {
	m.findCalls++
	var result []model.Course
	for _, c := range m.sorted() {
		if slices.Contains(ids, c.ID) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) Search(_ context.Context, cond query.Condition, offset, limit int) ([]model.Course, error) {
	var matched []model.Course
	for _, c := range m.sorted() {
		if query.Match(cond, &c) {
			matched = append(matched, c)
		}
	}
	if offset >= len(matched) {
		return []model.Course{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *mockCourseRepo) Count(_ context.Context, cond query.Condition) (int64, error) {
	var n int64
	for _, c := range m.courses {
		if query.Match(cond, &c) {
			n++
		}
	}
	return n, nil
}

func (m *mockCourseRepo) ListAll(_ context.Context) ([]model.Course, error) {
	return m.sorted(), nil
}

func (m *mockCourseRepo) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	var result []string
	for _, id := range ids {
		if _, ok := m.courses[id]; ok && !slices.Contains(result, id) {
			result = append(result, id)
		}
	}
	return result, nil
}

// ── Mock CourseTableRepository ──

type mockCourseTableRepo struct {
	tables      map[string]model.CourseTable
	updateErrs  []error // 按调用顺序注入 Update 错误，nil 表示成功
	createErr   error
	deleteErr   error
	updateCalls int
}

func newMockCourseTableRepo() *mockCourseTableRepo {
	return &mockCourseTableRepo{tables: make(map[string]model.CourseTable)}
}

func cloneTable(t *model.CourseTable) model.CourseTable {
	c := *t
	c.Courses = slices.Clone(t.Courses)
	if t.UserID != nil {
		uid := *t.UserID
		c.UserID = &uid
	}
	if t.ExpireTs != nil {
		ts := *t.ExpireTs
		c.ExpireTs = &ts
	}
	return c
}

func (m *mockCourseTableRepo) Create(_ context.Context, table *model.CourseTable) error {
	if m.createErr != nil {
		return m.createErr
	}
	if table.Version == 0 {
		table.Version = 1
	}
	m.tables[table.ID] = cloneTable(table)
	return nil
}

func (m *mockCourseTableRepo) GetByID(_ context.Context, id string) (*model.CourseTable, error) {
	t, ok := m.tables[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := cloneTable(&t)
	return &c, nil
}

func (m *mockCourseTableRepo) Update(_ context.Context, table *model.CourseTable) error {
	m.updateCalls++
	if err := popErr(&m.updateErrs); err != nil {
		return err
	}
	stored, ok := m.tables[table.ID]
	if !ok || stored.Version != table.Version {
		return pkgerrors.ErrOptimisticLock
	}
	table.Version++
	m.tables[table.ID] = cloneTable(table)
	return nil
}

func (m *mockCourseTableRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.tables[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.tables, id)
	return nil
}

func (m *mockCourseTableRepo) List(_ context.Context) ([]model.CourseTable, error) {
	result := make([]model.CourseTable, 0, len(m.tables))
	for _, t := range m.tables {
		result = append(result, cloneTable(&t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users      map[string]model.User
	updateErrs []error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]model.User)}
}

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u *model.User) model.User {
	c := *u
	c.StudentID = cloneStrPtr(u.StudentID)
	c.Major = cloneStrPtr(u.Major)
	c.DMajor = cloneStrPtr(u.DMajor)
	c.Minors = slices.Clone(u.Minors)
	c.Favorites = slices.Clone(u.Favorites)
	c.CourseTables = slices.Clone(u.CourseTables)
	c.HistoryCourses = slices.Clone(u.HistoryCourses)
	return c
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.Version == 0 {
		user.Version = 1
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := cloneUser(&u)
	return &c, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			c := cloneUser(&u)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if err := popErr(&m.updateErrs); err != nil {
		return err
	}
	stored, ok := m.users[user.ID]
	if !ok || stored.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version++
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	depts map[string]model.Department
}

func newMockDeptRepo(depts ...model.Department) *mockDeptRepo {
	m := &mockDeptRepo{depts: make(map[string]model.Department)}
	for _, d := range depts {
		m.depts[d.ID] = d
	}
	return m
}

func (m *mockDeptRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if d, ok := m.depts[id]; ok {
		return &d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) ListByIDs(_ context.Context, ids []string) ([]model.Department, error) {
	result := []model.Department{}
	for _, id := range ids {
		if d, ok := m.depts[id]; ok {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockDeptRepo) List(_ context.Context) ([]model.Department, error) {
	result := make([]model.Department, 0, len(m.depts))
	for _, d := range m.depts {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ── Mock LiveDataRepository ──

type mockLiveDataRepo struct {
	mu        sync.Mutex
	entries   []model.LiveDataEntry
	nextID    int64
	appendErr error
	latestErr error
}

func newMockLiveDataRepo() *mockLiveDataRepo {
	return &mockLiveDataRepo{}
}

func (m *mockLiveDataRepo) matches(e *model.LiveDataEntry, key repository.LiveDataKey) bool {
	return e.CourseID == key.CourseID && e.Kind == key.Kind && e.SubType == key.SubType
}

func (m *mockLiveDataRepo) Latest(_ context.Context, key repository.LiveDataKey) (*model.LiveDataEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	var latest *model.LiveDataEntry
	for i := range m.entries {
		e := &m.entries[i]
		if !m.matches(e, key) {
			continue
		}
		if latest == nil || !e.FetchTs.Before(latest.FetchTs) {
			latest = e
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	c := *latest
	return &c, nil
}

func (m *mockLiveDataRepo) Append(_ context.Context, entry *model.LiveDataEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.nextID++
	entry.ID = m.nextID
	entry.Mode = model.LiveDataModeAppend
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockLiveDataRepo) Upsert(_ context.Context, entry *model.LiveDataEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Mode = model.LiveDataModeUpsert
	key := repository.LiveDataKey{CourseID: entry.CourseID, Kind: entry.Kind, SubType: entry.SubType}
	for i := range m.entries {
		e := &m.entries[i]
		if e.Mode == model.LiveDataModeUpsert && m.matches(e, key) {
			entry.ID = e.ID
			*e = *entry
			return nil
		}
	}
	m.nextID++
	entry.ID = m.nextID
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockLiveDataRepo) History(_ context.Context, key repository.LiveDataKey, limit int) ([]model.LiveDataEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.LiveDataEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.Mode == model.LiveDataModeAppend && m.matches(&e, key) {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockLiveDataRepo) count(key repository.LiveDataKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.entries {
		if m.matches(&m.entries[i], key) {
			n++
		}
	}
	return n
}

// ── Mock PostRepository ──

type mockPostRepo struct {
	posts      map[string]model.SocialPost
	updateErrs []error
	createErr  error
	// reports 删除贴文时级联删除检举
	reports     *mockReportRepo
	updateCalls int
}

func newMockPostRepo(reports *mockReportRepo) *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]model.SocialPost), reports: reports}
}

func clonePost(p *model.SocialPost) model.SocialPost {
	c := *p
	c.Content = slices.Clone(p.Content)
	c.Upvotes = slices.Clone(p.Upvotes)
	c.Downvotes = slices.Clone(p.Downvotes)
	return c
}

func (m *mockPostRepo) Create(_ context.Context, post *model.SocialPost) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range m.posts {
		if p.CourseID == post.CourseID && p.UserID == post.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if post.Version == 0 {
		post.Version = 1
	}
	m.posts[post.ID] = clonePost(post)
	return nil
}

func (m *mockPostRepo) GetByID(_ context.Context, id string) (*model.SocialPost, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := clonePost(&p)
	return &c, nil
}

func (m *mockPostRepo) GetByCourseAndUser(_ context.Context, courseID, userID string) (*model.SocialPost, error) {
	for _, p := range m.posts {
		if p.CourseID == courseID && p.UserID == userID {
			c := clonePost(&p)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPostRepo) ListByCourse(_ context.Context, courseID string) ([]model.SocialPost, error) {
	result := []model.SocialPost{}
	for _, p := range m.posts {
		if p.CourseID == courseID {
			result = append(result, clonePost(&p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *mockPostRepo) UpdateVotes(_ context.Context, post *model.SocialPost) error {
	m.updateCalls++
	if err := popErr(&m.updateErrs); err != nil {
		return err
	}
	stored, ok := m.posts[post.ID]
	if !ok || stored.Version != post.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Upvotes = slices.Clone(post.Upvotes)
	stored.Downvotes = slices.Clone(post.Downvotes)
	stored.Version++
	post.Version = stored.Version
	m.posts[post.ID] = stored
	return nil
}

func (m *mockPostRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.posts, id)
	if m.reports != nil {
		for rid, r := range m.reports.reports {
			if r.PostID == id {
				delete(m.reports.reports, rid)
			}
		}
	}
	return nil
}

// ── Mock PostReportRepository ──

type mockReportRepo struct {
	reports map[string]model.PostReport
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: make(map[string]model.PostReport)}
}

func (m *mockReportRepo) Create(_ context.Context, report *model.PostReport) error {
	for _, r := range m.reports {
		if r.PostID == report.PostID && r.UserID == report.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.reports[report.ID] = *report
	return nil
}

func (m *mockReportRepo) GetByPostAndUser(_ context.Context, postID, userID string) (*model.PostReport, error) {
	for _, r := range m.reports {
		if r.PostID == postID && r.UserID == userID {
			c := r
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── 测试辅助 ──

type mockRepos struct {
	course *mockCourseRepo
	table  *mockCourseTableRepo
	user   *mockUserRepo
	dept   *mockDeptRepo
	live   *mockLiveDataRepo
	post   *mockPostRepo
	report *mockReportRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		course: newMockCourseRepo(),
		table:  newMockCourseTableRepo(),
		user:   newMockUserRepo(),
		dept:   newMockDeptRepo(),
		live:   newMockLiveDataRepo(),
		report: newMockReportRepo(),
	}
	m.post = newMockPostRepo(m.report)
	return &repository.Repository{
		Course:      m.course,
		CourseTable: m.table,
		User:        m.user,
		Department:  m.dept,
		LiveData:    m.live,
		Post:        m.post,
		PostReport:  m.report,
	}, m
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testCourseConfig() *config.CourseConfig {
	return &config.CourseConfig{
		Semester:      "1141",
		RequestLimit:  10,
		TableExpiry:   24 * time.Hour,
		SemesterStart: "2025-09-01",
		SemesterWeeks: 16,
		Timezone:      "Asia/Taipei",
	}
}

func testCourse(id, name string, schedules ...model.CourseSchedule) model.Course {
	return model.Course{
		ID:           id,
		Semester:     id[:4],
		Name:         name,
		Teacher:      "王老师",
		EnrollMethod: 1,
		Schedules:    schedules,
	}
}

func seedUser(m *mockRepos, id string) {
	_ = m.user.Create(context.Background(), &model.User{
		ID:             id,
		Name:           "测试用户",
		Email:          id + "@ntu.edu.tw",
		Minors:         datatypes.JSONSlice[string]{},
		Favorites:      datatypes.JSONSlice[string]{},
		CourseTables:   datatypes.JSONSlice[string]{},
		HistoryCourses: datatypes.JSONSlice[string]{},
	})
}

func seedGuestTable(m *mockRepos, id string, expireAt time.Time) {
	_ = m.table.Create(context.Background(), &model.CourseTable{
		ID:       id,
		Name:     "我的课表",
		Semester: "1141",
		Courses:  datatypes.JSONSlice[string]{},
		ExpireTs: &expireAt,
	})
}

var nopLogger = zap.NewNop()
