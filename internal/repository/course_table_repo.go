package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// CourseTableRepository 课表数据访问接口
type CourseTableRepository interface {
	Create(ctx context.Context, table *model.CourseTable) error
	GetByID(ctx context.Context, id string) (*model.CourseTable, error)
	// Update 乐观锁更新，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, table *model.CourseTable) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.CourseTable, error)
}

// courseTableRepo CourseTableRepository 的 GORM 实现
type courseTableRepo struct {
	db *gorm.DB
}

// NewCourseTableRepo 创建 CourseTableRepository 实例
func NewCourseTableRepo(db *gorm.DB) CourseTableRepository {
	return &courseTableRepo{db: db}
}

func (r *courseTableRepo) Create(ctx context.Context, table *model.CourseTable) error {
	if table.Version == 0 {
		table.Version = 1
	}
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *courseTableRepo) GetByID(ctx context.Context, id string) (*model.CourseTable, error) {
	var table model.CourseTable
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&table).Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *courseTableRepo) Update(ctx context.Context, table *model.CourseTable) error {
	oldVersion := table.Version
	result := r.db.WithContext(ctx).
		Model(&model.CourseTable{}).
		Where("id = ? AND version = ?", table.ID, oldVersion).
		Updates(map[string]interface{}{
			"name":      table.Name,
			"user_id":   table.UserID,
			"courses":   table.Courses,
			"expire_ts": table.ExpireTs,
			"version":   oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	table.Version = oldVersion + 1
	return nil
}

func (r *courseTableRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.CourseTable{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseTableRepo) List(ctx context.Context) ([]model.CourseTable, error) {
	var tables []model.CourseTable
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&tables).Error
	return tables, err
}
