package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ────────────────────── 贴文 ──────────────────────

// PostRepository 课程贴文数据访问接口
type PostRepository interface {
	Create(ctx context.Context, post *model.SocialPost) error
	GetByID(ctx context.Context, id string) (*model.SocialPost, error)
	// GetByCourseAndUser 不存在时返回 gorm.ErrRecordNotFound
	GetByCourseAndUser(ctx context.Context, courseID, userID string) (*model.SocialPost, error)
	// ListByCourse 按发布时间升序
	ListByCourse(ctx context.Context, courseID string) ([]model.SocialPost, error)
	// UpdateVotes 乐观锁更新投票列表，version 不匹配时返回 ErrOptimisticLock
	UpdateVotes(ctx context.Context, post *model.SocialPost) error
	Delete(ctx context.Context, id string) error
}

type postRepo struct {
	db *gorm.DB
}

// NewPostRepo 创建 PostRepository 实例
func NewPostRepo(db *gorm.DB) PostRepository {
	return &postRepo{db: db}
}

func (r *postRepo) Create(ctx context.Context, post *model.SocialPost) error {
	if post.Version == 0 {
		post.Version = 1
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*model.SocialPost, error) {
	var post model.SocialPost
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepo) GetByCourseAndUser(ctx context.Context, courseID, userID string) (*model.SocialPost, error) {
	var post model.SocialPost
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepo) ListByCourse(ctx context.Context, courseID string) ([]model.SocialPost, error) {
	var posts []model.SocialPost
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepo) UpdateVotes(ctx context.Context, post *model.SocialPost) error {
	oldVersion := post.Version
	result := r.db.WithContext(ctx).
		Model(&model.SocialPost{}).
		Where("id = ? AND version = ?", post.ID, oldVersion).
		Updates(map[string]interface{}{
			"upvotes":   post.Upvotes,
			"downvotes": post.Downvotes,
			"version":   oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	post.Version = oldVersion + 1
	return nil
}

func (r *postRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.SocialPost{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ────────────────────── 检举 ──────────────────────

// PostReportRepository 贴文检举数据访问接口
type PostReportRepository interface {
	Create(ctx context.Context, report *model.PostReport) error
	// GetByPostAndUser 不存在时返回 gorm.ErrRecordNotFound
	GetByPostAndUser(ctx context.Context, postID, userID string) (*model.PostReport, error)
}

type postReportRepo struct {
	db *gorm.DB
}

// NewPostReportRepo 创建 PostReportRepository 实例
func NewPostReportRepo(db *gorm.DB) PostReportRepository {
	return &postReportRepo{db: db}
}

func (r *postReportRepo) Create(ctx context.Context, report *model.PostReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *postReportRepo) GetByPostAndUser(ctx context.Context, postID, userID string) (*model.PostReport, error) {
	var report model.PostReport
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}
