package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ── 课表模块业务错误 ──

var (
	ErrSemesterInactive       = pkgerrors.New(pkgerrors.ErrForbidden, "不是当前学期")
	ErrCourseTableExpired     = pkgerrors.New(pkgerrors.ErrForbidden, "课表已过期")
	ErrCourseTableNotOwner    = pkgerrors.New(pkgerrors.ErrForbidden, "无权修改该课表")
	ErrCourseSemesterMismatch = pkgerrors.New(pkgerrors.ErrForbidden, "课程学期与课表学期不一致")
	ErrCourseTableExists      = pkgerrors.New(pkgerrors.ErrConflict, "课表已存在")
)

// CourseTableService 课表业务接口
type CourseTableService interface {
	List(ctx context.Context) ([]dto.CourseTableSummary, error)
	Get(ctx context.Context, id string) (*dto.CourseTableResponse, error)
	// Create callerID 非空时创建为该用户的课表，否则创建有效期内的访客课表
	Create(ctx context.Context, req *dto.CreateCourseTableRequest, callerID string) (*dto.CourseTableResponse, error)
	// Patch 修改名称与课程列表，不变更归属
	Patch(ctx context.Context, id string, req *dto.PatchCourseTableRequest, callerID string) (*dto.CourseTableResponse, error)
	Delete(ctx context.Context, id string) error
}

type courseTableService struct {
	repo    *repository.Repository
	courses CourseService
	linker  *TableLinker
	cfg     *config.CourseConfig
	now     func() time.Time
	logger  *zap.Logger
}

// NewCourseTableService 创建 CourseTableService 实例
func NewCourseTableService(
	repo *repository.Repository,
	courses CourseService,
	linker *TableLinker,
	cfg *config.CourseConfig,
	logger *zap.Logger,
	now func() time.Time,
) CourseTableService {
	if now == nil {
		now = time.Now
	}
	return &courseTableService{
		repo:    repo,
		courses: courses,
		linker:  linker,
		cfg:     cfg,
		now:     now,
		logger:  logger,
	}
}

// ────────────────────── List ──────────────────────

func (s *courseTableService) List(ctx context.Context) ([]dto.CourseTableSummary, error) {
	tables, err := s.repo.CourseTable.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CourseTableSummary, len(tables))
	for i := range tables {
		result[i] = toCourseTableSummary(&tables[i])
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *courseTableService) Get(ctx context.Context, id string) (*dto.CourseTableResponse, error) {
	table, err := loadReadableTable(ctx, s.repo, s.cfg.Semester, s.now(), id)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, table)
}

// loadReadableTable 读取课表并校验：存在、属于当前学期、未过期
func loadReadableTable(ctx context.Context, repo *repository.Repository, semester string, now time.Time, id string) (*model.CourseTable, error) {
	table, err := repo.CourseTable.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseTableNotFound
		}
		return nil, err
	}
	if table.Semester != semester {
		return nil, ErrSemesterInactive
	}
	if table.IsExpired(now) {
		return nil, ErrCourseTableExpired
	}
	return table, nil
}

// ────────────────────── Create ──────────────────────

func (s *courseTableService) Create(ctx context.Context, req *dto.CreateCourseTableRequest, callerID string) (*dto.CourseTableResponse, error) {
	if req.Semester != s.cfg.Semester {
		return nil, ErrSemesterInactive
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := s.repo.CourseTable.GetByID(ctx, id); err == nil {
		return nil, ErrCourseTableExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	table := &model.CourseTable{
		ID:       id,
		Name:     req.Name,
		Semester: req.Semester,
		Courses:  datatypes.JSONSlice[string]{},
	}

	if callerID != "" {
		if _, err := s.linker.CreateOwned(ctx, table, callerID); err != nil {
			return nil, err
		}
	} else {
		table.Release(s.now().Add(s.cfg.TableExpiry))
		if err := s.repo.CourseTable.Create(ctx, table); err != nil {
			return nil, err
		}
	}

	s.logger.Info("课表已创建",
		zap.String("table_id", table.ID),
		zap.Bool("owned", table.UserID != nil),
	)
	return s.expand(ctx, table)
}

// ────────────────────── Patch ──────────────────────

func (s *courseTableService) Patch(ctx context.Context, id string, req *dto.PatchCourseTableRequest, callerID string) (*dto.CourseTableResponse, error) {
	table, err := s.repo.CourseTable.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseTableNotFound
		}
		return nil, err
	}
	if table.Semester != s.cfg.Semester {
		return nil, ErrSemesterInactive
	}
	prefix := table.Semester + "_"
	for _, cid := range req.Courses {
		if !strings.HasPrefix(cid, prefix) {
			return nil, ErrCourseSemesterMismatch
		}
	}
	if table.IsExpired(s.now()) {
		return nil, ErrCourseTableExpired
	}
	if table.UserID != nil && !table.OwnedBy(callerID) {
		return nil, ErrCourseTableNotOwner
	}

	if req.Courses != nil {
		if err := s.requireCourses(ctx, req.Courses); err != nil {
			return nil, err
		}
		table.Courses = datatypes.JSONSlice[string](req.Courses)
	}
	if req.Name != nil {
		table.Name = *req.Name
	}

	if err := s.repo.CourseTable.Update(ctx, table); err != nil {
		return nil, err
	}
	return s.expand(ctx, table)
}

// requireCourses 课程 ID 必须全部存在
func (s *courseTableService) requireCourses(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.repo.Course.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}
	exists := make(map[string]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}
	var missing []string
	for _, id := range ids {
		if !exists[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.Newf(pkgerrors.ErrValidation, "课程不存在: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *courseTableService) Delete(ctx context.Context, id string) error {
	if err := s.repo.CourseTable.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseTableNotFound
		}
		return err
	}
	s.logger.Info("课表已删除", zap.String("table_id", id))
	return nil
}

// ── 响应转换 ──

func (s *courseTableService) expand(ctx context.Context, table *model.CourseTable) (*dto.CourseTableResponse, error) {
	courses, err := s.courses.FetchByIDs(ctx, table.Courses, true)
	if err != nil {
		return nil, err
	}
	return &dto.CourseTableResponse{
		ID:       table.ID,
		Name:     table.Name,
		Semester: table.Semester,
		UserID:   table.UserID,
		ExpireTs: table.ExpireTs,
		Courses:  courses,
		Version:  table.Version,
	}, nil
}

func toCourseTableSummary(t *model.CourseTable) dto.CourseTableSummary {
	courses := []string(t.Courses)
	if courses == nil {
		courses = []string{}
	}
	return dto.CourseTableSummary{
		ID:       t.ID,
		Name:     t.Name,
		Semester: t.Semester,
		UserID:   t.UserID,
		ExpireTs: t.ExpireTs,
		Courses:  courses,
		Version:  t.Version,
	}
}
