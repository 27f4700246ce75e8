package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
)

// LiveDataKey 实时数据缓存键
type LiveDataKey struct {
	CourseID string
	Kind     model.LiveDataKind
	SubType  string
}

// LiveDataRepository 实时数据缓存访问接口
type LiveDataRepository interface {
	// Latest 返回 key 下 fetch_ts 最新的条目，不存在时返回 gorm.ErrRecordNotFound
	Latest(ctx context.Context, key LiveDataKey) (*model.LiveDataEntry, error)
	// Append 追加一条新条目
	Append(ctx context.Context, entry *model.LiveDataEntry) error
	// Upsert 按 key 原地覆盖，每个 key 仅一行
	Upsert(ctx context.Context, entry *model.LiveDataEntry) error
	// History 按时间倒序列出 key 下的追加条目
	History(ctx context.Context, key LiveDataKey, limit int) ([]model.LiveDataEntry, error)
}

// liveDataRepo LiveDataRepository 的 GORM 实现
type liveDataRepo struct {
	db *gorm.DB
}

// NewLiveDataRepo 创建 LiveDataRepository 实例
func NewLiveDataRepo(db *gorm.DB) LiveDataRepository {
	return &liveDataRepo{db: db}
}

func (r *liveDataRepo) byKey(ctx context.Context, key LiveDataKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("course_id = ? AND kind = ? AND sub_type = ?", key.CourseID, key.Kind, key.SubType)
}

func (r *liveDataRepo) Latest(ctx context.Context, key LiveDataKey) (*model.LiveDataEntry, error) {
	var entry model.LiveDataEntry
	err := r.byKey(ctx, key).
		Order("fetch_ts DESC, id DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *liveDataRepo) Append(ctx context.Context, entry *model.LiveDataEntry) error {
	entry.ID = 0
	entry.Mode = model.LiveDataModeAppend
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *liveDataRepo) Upsert(ctx context.Context, entry *model.LiveDataEntry) error {
	entry.ID = 0
	entry.Mode = model.LiveDataModeUpsert
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "course_id"}, {Name: "kind"}, {Name: "sub_type"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "mode = 'upsert'"}}},
			DoUpdates:   clause.AssignmentColumns([]string{"content", "fetch_ok", "fetch_ts"}),
		}).
		Create(entry).Error
}

func (r *liveDataRepo) History(ctx context.Context, key LiveDataKey, limit int) ([]model.LiveDataEntry, error) {
	var entries []model.LiveDataEntry
	db := r.byKey(ctx, key).
		Where("mode = ?", model.LiveDataModeAppend).
		Order("fetch_ts DESC, id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&entries).Error
	return entries, err
}
