package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/query"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound       = pkgerrors.New(pkgerrors.ErrNotFound, "课程不存在")
	ErrInvalidKeywordFields = pkgerrors.New(pkgerrors.ErrValidation, "无效的搜索字段")
	ErrTooManyCourseIDs     = pkgerrors.New(pkgerrors.ErrValidation, "请求的课程 ID 数量超过上限")
)

// CourseService 课程业务接口
type CourseService interface {
	ListAll(ctx context.Context) ([]*dto.CourseResponse, error)
	Search(ctx context.Context, req *dto.CourseSearchRequest) (*dto.CourseListResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CourseResponse, error)
	// GetByIDs 校验数量上限后批量取课程
	GetByIDs(ctx context.Context, ids []string, sorted bool) (*dto.CourseListResponse, error)
	// FetchByIDs 一次查询批量取课程
	//
	// preserveOrder 为 true 时结果与 ids 逐位对应：重复 ID 重复输出，
	// 不存在的 ID 对应位置为 nil；否则按存储顺序返回且省略不存在的 ID。
	FetchByIDs(ctx context.Context, ids []string, preserveOrder bool) ([]*dto.CourseResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	cfg    *config.CourseConfig
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, cfg *config.CourseConfig, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, cfg: cfg, logger: logger}
}

// ────────────────────── ListAll ──────────────────────

func (s *courseService) ListAll(ctx context.Context) ([]*dto.CourseResponse, error) {
	courses, err := s.repo.Course.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toCourseResponses(courses), nil
}

// ────────────────────── Search ──────────────────────

func (s *courseService) Search(ctx context.Context, req *dto.CourseSearchRequest) (*dto.CourseListResponse, error) {
	if req.Fields == nil {
		return nil, ErrInvalidKeywordFields
	}
	for _, f := range req.Fields {
		if !query.ValidKeywordField(f) {
			return nil, ErrInvalidKeywordFields
		}
	}

	semester := req.Semester
	if semester == "" {
		semester = s.cfg.Semester
	}

	cond, err := query.Compile(req.Filter, query.Scope{
		Semester:      semester,
		Keyword:       strings.TrimSpace(req.Keyword),
		KeywordFields: req.Fields,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("课程搜索", zap.String("condition", query.String(cond)))

	courses, err := s.repo.Course.Search(ctx, cond, req.Offset, req.BatchSize)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Course.Count(ctx, cond)
	if err != nil {
		return nil, err
	}

	return &dto.CourseListResponse{
		Courses:    toCourseResponses(courses),
		TotalCount: total,
	}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *courseService) GetByID(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return toCourseResponse(course), nil
}

// ────────────────────── GetByIDs / FetchByIDs ──────────────────────

func (s *courseService) GetByIDs(ctx context.Context, ids []string, sorted bool) (*dto.CourseListResponse, error) {
	if len(ids) >= s.cfg.RequestLimit {
		return nil, ErrTooManyCourseIDs
	}
	courses, err := s.FetchByIDs(ctx, ids, sorted)
	if err != nil {
		return nil, err
	}
	return &dto.CourseListResponse{Courses: courses, TotalCount: int64(len(courses))}, nil
}

func (s *courseService) FetchByIDs(ctx context.Context, ids []string, preserveOrder bool) ([]*dto.CourseResponse, error) {
	if len(ids) == 0 {
		return []*dto.CourseResponse{}, nil
	}

	courses, err := s.repo.Course.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	if !preserveOrder {
		return toCourseResponses(courses), nil
	}

	byID := make(map[string]*dto.CourseResponse, len(courses))
	for i := range courses {
		byID[courses[i].ID] = toCourseResponse(&courses[i])
	}
	result := make([]*dto.CourseResponse, len(ids))
	for i, id := range ids {
		result[i] = byID[id] // 不存在时为 nil
	}
	return result, nil
}

// RequireAll 校验按序取回的结果中每个 ID 都存在
func RequireAll(ids []string, courses []*dto.CourseResponse) error {
	var missing []string
	for i, id := range ids {
		if i >= len(courses) || courses[i] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.Newf(pkgerrors.ErrValidation, "课程不存在: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ── 响应转换 ──

func toCourseResponses(courses []model.Course) []*dto.CourseResponse {
	result := make([]*dto.CourseResponse, len(courses))
	for i := range courses {
		result[i] = toCourseResponse(&courses[i])
	}
	return result
}

// toCourseResponse 展开关联；原始系所名称转为 ID 为 null 的系所记录
func toCourseResponse(c *model.Course) *dto.CourseResponse {
	resp := &dto.CourseResponse{
		ID:             c.ID,
		Semester:       c.Semester,
		Serial:         c.Serial,
		Code:           c.Code,
		Identifier:     c.Identifier,
		Name:           c.Name,
		Teacher:        c.Teacher,
		Credits:        c.Credits,
		EnrollMethod:   c.EnrollMethod,
		Departments:    make([]dto.DepartmentResponse, 0, len(c.Departments)+len(c.DepartmentsRaw)),
		Areas:          make([]dto.AreaResponse, 0, len(c.Areas)),
		Specialties:    make([]dto.SpecialtyResponse, 0, len(c.Specialties)),
		Schedules:      make([]dto.ScheduleResponse, 0, len(c.Schedules)),
		Prerequisites:  make([]string, 0, len(c.Prerequisites)),
		PrerequisiteOf: make([]string, 0, len(c.PrerequisiteOf)),
	}

	for _, d := range c.Departments {
		if d.Department == nil {
			continue
		}
		resp.Departments = append(resp.Departments, toDepartmentResponse(d.Department))
	}
	for _, name := range c.DepartmentsRaw {
		resp.Departments = append(resp.Departments, dto.DepartmentResponse{NameFull: name})
	}

	for _, a := range c.Areas {
		item := dto.AreaResponse{AreaID: a.AreaID}
		if a.Area != nil {
			item.Name = a.Area.Name
		}
		resp.Areas = append(resp.Areas, item)
	}
	for _, sp := range c.Specialties {
		item := dto.SpecialtyResponse{SpecialtyID: sp.SpecialtyID}
		if sp.Specialty != nil {
			item.Name = sp.Specialty.Name
		}
		resp.Specialties = append(resp.Specialties, item)
	}
	for _, sc := range c.Schedules {
		resp.Schedules = append(resp.Schedules, dto.ScheduleResponse{
			Weekday:  sc.Weekday,
			Interval: sc.Interval,
			Location: sc.Location,
		})
	}
	for _, p := range c.Prerequisites {
		resp.Prerequisites = append(resp.Prerequisites, p.PreCourseID)
	}
	for _, p := range c.PrerequisiteOf {
		resp.PrerequisiteOf = append(resp.PrerequisiteOf, p.CourseID)
	}
	return resp
}

func toDepartmentResponse(d *model.Department) dto.DepartmentResponse {
	id := d.ID
	return dto.DepartmentResponse{
		ID:        &id,
		CollegeID: d.CollegeID,
		NameShort: d.NameShort,
		NameFull:  d.NameFull,
		NameAlt:   d.NameAlt,
	}
}
