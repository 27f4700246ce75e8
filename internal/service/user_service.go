package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserForbidden     = pkgerrors.New(pkgerrors.ErrForbidden, "无权访问该用户数据")
	ErrUserExists        = pkgerrors.New(pkgerrors.ErrConflict, "用户资料已存在")
	ErrEmailRegistered   = pkgerrors.New(pkgerrors.ErrConflict, "邮箱已注册")
	ErrFavoriteExists    = pkgerrors.New(pkgerrors.ErrConflict, "课程已在收藏中")
	ErrDepartmentInvalid = pkgerrors.New(pkgerrors.ErrValidation, "系所不存在")
)

// UserService 用户业务接口
// callerID 为 Token subject
type UserService interface {
	Get(ctx context.Context, id, callerID string) (*dto.UserResponse, error)
	Create(ctx context.Context, callerID string, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, callerID string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeleteProfile(ctx context.Context, callerID string) error
	AddFavorite(ctx context.Context, callerID, courseID string) (*dto.FavoritesResponse, error)
	RemoveFavorite(ctx context.Context, callerID, courseID string) (*dto.FavoritesResponse, error)
	LinkCourseTable(ctx context.Context, userID, callerID, tableID string) (*dto.UserResponse, error)
}

type userService struct {
	repo    *repository.Repository
	courses CourseService
	linker  *TableLinker
	logger  *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, courses CourseService, linker *TableLinker, logger *zap.Logger) UserService {
	return &userService{repo: repo, courses: courses, linker: linker, logger: logger}
}

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ────────────────────── Get ──────────────────────

func (s *userService) Get(ctx context.Context, id, callerID string) (*dto.UserResponse, error) {
	if id != callerID {
		return nil, ErrUserForbidden
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toUserResponse(ctx, user)
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, callerID string, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if _, err := s.repo.User.GetByID(ctx, callerID); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		ID:             callerID,
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		Minors:         datatypes.JSONSlice[string]{},
		Favorites:      datatypes.JSONSlice[string]{},
		CourseTables:   datatypes.JSONSlice[string]{},
		HistoryCourses: datatypes.JSONSlice[string]{},
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("用户资料已创建", zap.String("user_id", user.ID))
	return s.toUserResponse(ctx, user)
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, callerID string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Year != nil {
		user.Year = *req.Year
	}
	if req.Major != nil {
		user.Major = emptyToNil(*req.Major)
	}
	if req.DMajor != nil {
		user.DMajor = emptyToNil(*req.DMajor)
	}
	if req.Minors != nil {
		user.Minors = datatypes.JSONSlice[string](req.Minors)
	}
	if req.HistoryCourses != nil {
		user.HistoryCourses = datatypes.JSONSlice[string](req.HistoryCourses)
	}

	if err := s.checkDepartments(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.User.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.toUserResponse(ctx, user)
}

// checkDepartments 主修、双主修、辅修必须是已登记的系所
func (s *userService) checkDepartments(ctx context.Context, user *model.User) error {
	ids := departmentIDs(user)
	if len(ids) == 0 {
		return nil
	}
	depts, err := s.repo.Department.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(depts) != len(ids) {
		return ErrDepartmentInvalid
	}
	return nil
}

// ────────────────────── DeleteProfile ──────────────────────

func (s *userService) DeleteProfile(ctx context.Context, callerID string) error {
	if err := s.repo.User.Delete(ctx, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("用户资料已删除", zap.String("user_id", callerID))
	return nil
}

// ────────────────────── Favorites ──────────────────────

func (s *userService) AddFavorite(ctx context.Context, callerID, courseID string) (*dto.FavoritesResponse, error) {
	user, err := s.getUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if user.HasFavorite(courseID) {
		return nil, ErrFavoriteExists
	}
	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	user.Favorites = append(user.Favorites, courseID)
	if err := s.repo.User.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.favorites(ctx, user)
}

func (s *userService) RemoveFavorite(ctx context.Context, callerID, courseID string) (*dto.FavoritesResponse, error) {
	user, err := s.getUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	kept := slices.DeleteFunc(slices.Clone(user.Favorites), func(id string) bool { return id == courseID })
	if len(kept) != len(user.Favorites) {
		user.Favorites = kept
		if err := s.repo.User.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return s.favorites(ctx, user)
}

func (s *userService) favorites(ctx context.Context, user *model.User) (*dto.FavoritesResponse, error) {
	courses, err := s.courses.FetchByIDs(ctx, user.Favorites, false)
	if err != nil {
		return nil, err
	}
	return &dto.FavoritesResponse{Favorites: courses}, nil
}

// ────────────────────── LinkCourseTable ──────────────────────

func (s *userService) LinkCourseTable(ctx context.Context, userID, callerID, tableID string) (*dto.UserResponse, error) {
	if userID != callerID {
		return nil, ErrUserForbidden
	}
	user, err := s.linker.Link(ctx, tableID, userID)
	if err != nil {
		return nil, err
	}
	return s.toUserResponse(ctx, user)
}

// ── 响应转换 ──

func departmentIDs(user *model.User) []string {
	var ids []string
	if user.Major != nil {
		ids = append(ids, *user.Major)
	}
	if user.DMajor != nil && !slices.Contains(ids, *user.DMajor) {
		ids = append(ids, *user.DMajor)
	}
	for _, m := range user.Minors {
		if !slices.Contains(ids, m) {
			ids = append(ids, m)
		}
	}
	return ids
}

// toUserResponse 展开主修/双主修/辅修系所与收藏课程
func (s *userService) toUserResponse(ctx context.Context, user *model.User) (*dto.UserResponse, error) {
	depts, err := s.repo.Department.ListByIDs(ctx, departmentIDs(user))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Department, len(depts))
	for i := range depts {
		byID[depts[i].ID] = &depts[i]
	}
	lookup := func(id *string) *dto.DepartmentResponse {
		if id == nil {
			return nil
		}
		d, ok := byID[*id]
		if !ok {
			return nil
		}
		resp := toDepartmentResponse(d)
		return &resp
	}

	minors := make([]dto.DepartmentResponse, 0, len(user.Minors))
	for _, m := range user.Minors {
		if d, ok := byID[m]; ok {
			minors = append(minors, toDepartmentResponse(d))
		}
	}

	favorites, err := s.courses.FetchByIDs(ctx, user.Favorites, false)
	if err != nil {
		return nil, err
	}

	return &dto.UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		StudentID:      user.StudentID,
		Year:           user.Year,
		Major:          lookup(user.Major),
		DMajor:         lookup(user.DMajor),
		Minors:         minors,
		Favorites:      favorites,
		CourseTables:   nonNil(user.CourseTables),
		HistoryCourses: nonNil(user.HistoryCourses),
	}, nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
