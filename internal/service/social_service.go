package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ── 课程社群业务错误 ──

var (
	ErrPostNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "贴文不存在")
	ErrNoCoursePosts       = pkgerrors.New(pkgerrors.ErrNotFound, "该课程暂无贴文")
	ErrPostExists          = pkgerrors.New(pkgerrors.ErrConflict, "已在该课程发布过贴文")
	ErrPostAlreadyReported = pkgerrors.New(pkgerrors.ErrConflict, "已检举过该贴文")
	ErrAlreadyVoted        = pkgerrors.New(pkgerrors.ErrConflict, "已投过相同的票")
	ErrReportOwnPost       = pkgerrors.New(pkgerrors.ErrValidation, "不能检举自己的贴文")
	ErrInvalidVote         = pkgerrors.New(pkgerrors.ErrValidation, "不支持的投票类型")
	ErrPostNotOwner        = pkgerrors.New(pkgerrors.ErrForbidden, "无权删除该贴文")
)

// voteMaxAttempts 投票遇到版本冲突时的最大尝试次数
const voteMaxAttempts = 3

// SocialService 课程社群业务接口
// callerID 为 Token subject
type SocialService interface {
	GetPost(ctx context.Context, postID, callerID string) (*dto.PostResponse, error)
	// ListCoursePosts 课程没有贴文时返回 ErrNoCoursePosts
	ListCoursePosts(ctx context.Context, courseID, callerID string) ([]dto.PostResponse, error)
	CreatePost(ctx context.Context, courseID, callerID string, req *dto.CreatePostRequest) (*dto.PostResponse, error)
	ReportPost(ctx context.Context, postID, callerID string, req *dto.ReportPostRequest) error
	// VotePost vote 取 1、-1 或 0（取消）
	VotePost(ctx context.Context, postID, callerID string, vote int) (*dto.PostResponse, error)
	DeletePost(ctx context.Context, postID, callerID string) error
}

type socialService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewSocialService 创建 SocialService 实例
func NewSocialService(repo *repository.Repository, logger *zap.Logger, now func() time.Time) SocialService {
	if now == nil {
		now = time.Now
	}
	return &socialService{repo: repo, logger: logger, now: now}
}

// getPost 非 UUID 的 id 直接视为不存在，避免数据库类型转换错误
func (s *socialService) getPost(ctx context.Context, postID string) (*model.SocialPost, error) {
	if uuid.Validate(postID) != nil {
		return nil, ErrPostNotFound
	}
	post, err := s.repo.Post.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *socialService) GetPost(ctx context.Context, postID, callerID string) (*dto.PostResponse, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	resp := toPostResponse(post, callerID)
	return &resp, nil
}

func (s *socialService) ListCoursePosts(ctx context.Context, courseID, callerID string) ([]dto.PostResponse, error) {
	if courseID == "" || len(courseID) > model.CourseIDMaxLen {
		return nil, ErrNoCoursePosts
	}
	posts, err := s.repo.Post.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNoCoursePosts
	}
	result := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		result = append(result, toPostResponse(&posts[i], callerID))
	}
	return result, nil
}

// ────────────────────── 发布 ──────────────────────

func (s *socialService) CreatePost(ctx context.Context, courseID, callerID string, req *dto.CreatePostRequest) (*dto.PostResponse, error) {
	if courseID == "" || len(courseID) > model.CourseIDMaxLen {
		return nil, ErrCourseNotFound
	}
	found, err := s.repo.Course.ExistingIDs(ctx, []string{courseID})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrCourseNotFound
	}

	if _, err := s.repo.Post.GetByCourseAndUser(ctx, courseID, callerID); err == nil {
		return nil, ErrPostExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !json.Valid(req.Content) {
		return nil, pkgerrors.New(pkgerrors.ErrValidation, "content 不是合法的 JSON")
	}

	now := s.now()
	post := &model.SocialPost{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		UserID:    callerID,
		Type:      strings.TrimSpace(req.Type),
		UserType:  strings.TrimSpace(req.UserType),
		Content:   datatypes.JSON(req.Content),
		Upvotes:   datatypes.JSONSlice[string]{},
		Downvotes: datatypes.JSONSlice[string]{},
	}
	post.CreatedAt = now
	post.UpdatedAt = now
	if err := s.repo.Post.Create(ctx, post); err != nil {
		// 并发发布由唯一约束兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPostExists
		}
		return nil, err
	}

	s.logger.Info("课程贴文已发布",
		zap.String("post_id", post.ID),
		zap.String("course_id", courseID),
		zap.String("user_id", callerID),
		zap.String("type", post.Type),
	)
	resp := toPostResponse(post, callerID)
	return &resp, nil
}

// ────────────────────── 检举 ──────────────────────

func (s *socialService) ReportPost(ctx context.Context, postID, callerID string, req *dto.ReportPostRequest) error {
	if uuid.Validate(postID) != nil {
		return ErrPostNotFound
	}
	if _, err := s.repo.PostReport.GetByPostAndUser(ctx, postID, callerID); err == nil {
		return ErrPostAlreadyReported
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID == callerID {
		return ErrReportOwnPost
	}

	now := s.now()
	report := &model.PostReport{
		ID:     uuid.NewString(),
		PostID: postID,
		UserID: callerID,
		Reason: strings.TrimSpace(req.Reason),
	}
	report.CreatedAt = now
	report.UpdatedAt = now
	if err := s.repo.PostReport.Create(ctx, report); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPostAlreadyReported
		}
		return err
	}

	s.logger.Warn("课程贴文被检举",
		zap.String("report_id", report.ID),
		zap.String("post_id", postID),
		zap.String("user_id", callerID),
		zap.String("reason", report.Reason),
	)
	return nil
}

// ────────────────────── 投票 ──────────────────────

func (s *socialService) VotePost(ctx context.Context, postID, callerID string, vote int) (*dto.PostResponse, error) {
	if vote != model.VoteUp && vote != model.VoteDown && vote != model.VoteCancel {
		return nil, ErrInvalidVote
	}

	var lastErr error
	for attempt := 0; attempt < voteMaxAttempts; attempt++ {
		post, err := s.getPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		if vote != model.VoteCancel && post.VoteOf(callerID) == vote {
			return nil, ErrAlreadyVoted
		}

		post.SetVote(callerID, vote)
		err = s.repo.Post.UpdateVotes(ctx, post)
		if err == nil {
			resp := toPostResponse(post, callerID)
			return &resp, nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("投票版本冲突，重试",
			zap.String("post_id", postID),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

// ────────────────────── 删除 ──────────────────────

// DeletePost 检举记录随贴文级联删除
func (s *socialService) DeletePost(ctx context.Context, postID, callerID string) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != callerID {
		return ErrPostNotOwner
	}
	if err := s.repo.Post.Delete(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	s.logger.Info("课程贴文已删除", zap.String("post_id", postID), zap.String("user_id", callerID))
	return nil
}

func toPostResponse(post *model.SocialPost, callerID string) dto.PostResponse {
	return dto.PostResponse{
		ID:             post.ID,
		CourseID:       post.CourseID,
		Type:           post.Type,
		Content:        json.RawMessage(post.Content),
		IsOwner:        post.UserID == callerID,
		UserType:       post.UserType,
		CreateTs:       post.CreatedAt,
		Upvotes:        len(post.Upvotes),
		Downvotes:      len(post.Downvotes),
		SelfVoteStatus: post.VoteOf(callerID),
	}
}
