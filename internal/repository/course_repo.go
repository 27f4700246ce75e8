package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/query"
)

// CourseRepository 课程数据访问接口
// 课程数据由外部导入，本服务只读
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*model.Course, error)
	// FindByIDs 一次查询取回全部存在的课程，顺序不保证
	FindByIDs(ctx context.Context, ids []string) ([]model.Course, error)
	Search(ctx context.Context, cond query.Condition, offset, limit int) ([]model.Course, error)
	Count(ctx context.Context, cond query.Condition) (int64, error)
	ListAll(ctx context.Context) ([]model.Course, error)
	// ExistingIDs 返回 ids 中存在的课程 ID
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// courseRepo CourseRepository 的 GORM 实现
type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

// withRelations 预加载课程的全部关联
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Departments.Department").
		Preload("Areas.Area").
		Preload("Specialties.Specialty").
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("weekday ASC, id ASC")
		}).
		Preload("Prerequisites").
		Preload("PrerequisiteOf")
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := withRelations(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := withRelations(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Search(ctx context.Context, cond query.Condition, offset, limit int) ([]model.Course, error) {
	where, args, err := BuildCondition(cond)
	if err != nil {
		return nil, err
	}

	db := withRelations(r.db.WithContext(ctx)).
		Model(&model.Course{}).
		Where(where, args...).
		Order("courses.id ASC")
	if offset > 0 {
		db = db.Offset(offset)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var courses []model.Course
	if err := db.Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) Count(ctx context.Context, cond query.Condition) (int64, error) {
	where, args, err := BuildCondition(cond)
	if err != nil {
		return 0, err
	}
	var total int64
	err = r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where(where, args...).
		Count(&total).Error
	return total, err
}

func (r *courseRepo) ListAll(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := withRelations(r.db.WithContext(ctx)).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	var found []string
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	return found, err
}
