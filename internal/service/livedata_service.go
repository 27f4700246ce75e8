package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/dto"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/redis"
)

// ── 实时数据模块业务错误 ──

var (
	ErrUnknownLiveDataKind = pkgerrors.New(pkgerrors.ErrValidation, "未知的实时数据类别")
	ErrUnknownBoardType    = pkgerrors.New(pkgerrors.ErrValidation, "未知的讨论版类型")
	ErrNoLiveDataHistory   = pkgerrors.New(pkgerrors.ErrValidation, "该类别不保留历史记录")
)

// StoragePolicy 缓存条目的写入策略
type StoragePolicy int

const (
	// PolicyAppend 每次拉取追加一行，读取时取 fetch_ts 最新者，保留历史
	PolicyAppend StoragePolicy = iota
	// PolicyUpsertByKey 每个 key 仅一行，原地覆盖
	PolicyUpsertByKey
)

// BoardTypes 讨论版镜像支持的版面类型
var BoardTypes = []string{"review", "exam"}

// PolicyFor 返回类别对应的写入策略，并校验子类型
func PolicyFor(kind model.LiveDataKind, subType string) (StoragePolicy, error) {
	switch kind {
	case model.LiveDataEnrollInfo, model.LiveDataRating, model.LiveDataSyllabus:
		return PolicyAppend, nil
	case model.LiveDataBoard:
		for _, b := range BoardTypes {
			if b == subType {
				return PolicyUpsertByKey, nil
			}
		}
		return 0, ErrUnknownBoardType
	default:
		return 0, ErrUnknownLiveDataKind
	}
}

// Fetcher 上游实时数据源
type Fetcher interface {
	Fetch(ctx context.Context, kind model.LiveDataKind, courseID, subType string) (json.RawMessage, error)
}

// HotCache 可选的进程外热缓存
type HotCache interface {
	GetCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LiveDataService 实时数据缓存业务接口
//
// 每个 (课程, 类别, 子类型) 的状态：
//   - 未命中：同步拉取上游。成功则写入新条目；失败则写入 content 为 null 的条目并返回 null
//   - 命中且未过期（now - fetch_ts < TTL）：直接返回，不访问上游
//   - 命中但已过期：拉取上游。成功则写入新条目；失败则返回旧内容，
//     同时写入沿用旧内容、fetch_ts 为当前时间的条目，下一次重试至少间隔一个 TTL
//
// 上游失败不会以错误形式返回给调用方。
type LiveDataService interface {
	Get(ctx context.Context, kind model.LiveDataKind, courseID, subType string) (*dto.LiveDataResponse, error)
	History(ctx context.Context, kind model.LiveDataKind, courseID, subType string, limit int) ([]dto.LiveDataHistoryItem, error)
}

type liveDataService struct {
	repo    *repository.Repository
	fetcher Fetcher
	cache   HotCache
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
	logger  *zap.Logger
}

// LiveDataOption LiveDataService 可选配置
type LiveDataOption func(*liveDataService)

// WithLiveDataClock 注入时钟
func WithLiveDataClock(now func() time.Time) LiveDataOption {
	return func(s *liveDataService) { s.now = now }
}

// WithHotCache 启用热缓存，cache 为 nil 时不启用
func WithHotCache(cache HotCache) LiveDataOption {
	return func(s *liveDataService) { s.cache = cache }
}

// NewLiveDataService 创建 LiveDataService 实例
func NewLiveDataService(
	repo *repository.Repository,
	fetcher Fetcher,
	cfg *config.LiveDataConfig,
	logger *zap.Logger,
	opts ...LiveDataOption,
) LiveDataService {
	s := &liveDataService{
		repo:    repo,
		fetcher: fetcher,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(key repository.LiveDataKey) string {
	return fmt.Sprintf("livedata:%s:%s:%s", key.Kind, key.CourseID, key.SubType)
}

// ────────────────────── Get ──────────────────────

func (s *liveDataService) Get(ctx context.Context, kind model.LiveDataKind, courseID, subType string) (*dto.LiveDataResponse, error) {
	if kind != model.LiveDataBoard {
		subType = ""
	}
	policy, err := PolicyFor(kind, subType)
	if err != nil {
		return nil, err
	}
	key := repository.LiveDataKey{CourseID: courseID, Kind: kind, SubType: subType}

	if resp, ok := s.readHot(ctx, key); ok {
		return resp, nil
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}

	// 同一 key 的并发请求合并为一次读取/刷新；
	// 刷新脱离单个调用方的取消信号，由 timeout 约束
	v, err, _ := s.group.Do(cacheKey(key), func() (interface{}, error) {
		return s.resolve(context.WithoutCancel(ctx), key, policy)
	})
	if err != nil {
		return nil, err
	}
	resp := *v.(*dto.LiveDataResponse)
	return &resp, nil
}

// requireCourse 课程不存在时直接拒绝，不访问上游也不写缓存
func (s *liveDataService) requireCourse(ctx context.Context, courseID string) error {
	if courseID == "" || len(courseID) > model.CourseIDMaxLen {
		return ErrCourseNotFound
	}
	found, err := s.repo.Course.ExistingIDs(ctx, []string{courseID})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrCourseNotFound
	}
	return nil
}

func (s *liveDataService) resolve(ctx context.Context, key repository.LiveDataKey, policy StoragePolicy) (*dto.LiveDataResponse, error) {
	cached, err := s.repo.LiveData.Latest(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cached = nil
	}

	if cached != nil && s.now().Sub(cached.FetchTs) < s.ttl {
		resp := toLiveDataResponse(cached)
		s.writeHot(ctx, key, resp)
		return resp, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	content, fetchErr := s.fetcher.Fetch(fetchCtx, key.Kind, key.CourseID, key.SubType)
	cancel()

	entry := &model.LiveDataEntry{
		CourseID: key.CourseID,
		Kind:     key.Kind,
		SubType:  key.SubType,
		FetchTs:  s.now(),
	}
	if fetchErr == nil {
		entry.Content = datatypes.JSON(content)
		entry.FetchOK = true
	} else {
		s.logger.Warn("实时数据拉取失败，使用缓存降级",
			zap.String("course_id", key.CourseID),
			zap.String("kind", string(key.Kind)),
			zap.String("sub_type", key.SubType),
			zap.Bool("has_stale", cached != nil),
			zap.Error(fetchErr),
		)
		if cached != nil {
			entry.Content = cached.Content
		}
	}

	if err := s.persist(ctx, policy, entry); err != nil {
		s.logger.Error("写入实时数据缓存失败",
			zap.String("course_id", key.CourseID),
			zap.String("kind", string(key.Kind)),
			zap.Error(err),
		)
		return nil, err
	}

	resp := toLiveDataResponse(entry)
	s.writeHot(ctx, key, resp)
	return resp, nil
}

func (s *liveDataService) persist(ctx context.Context, policy StoragePolicy, entry *model.LiveDataEntry) error {
	switch policy {
	case PolicyUpsertByKey:
		return s.repo.LiveData.Upsert(ctx, entry)
	default:
		return s.repo.LiveData.Append(ctx, entry)
	}
}

// ── 热缓存 ──

func (s *liveDataService) readHot(ctx context.Context, key repository.LiveDataKey) (*dto.LiveDataResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, err := s.cache.GetCache(ctx, cacheKey(key))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取热缓存失败", zap.String("key", cacheKey(key)), zap.Error(err))
		}
		return nil, false
	}
	var resp dto.LiveDataResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		s.logger.Warn("热缓存内容无法解析", zap.String("key", cacheKey(key)), zap.Error(err))
		return nil, false
	}
	// 热缓存 TTL 以秒为粒度，按注入的时钟再次确认新鲜度
	if s.now().Sub(resp.UpdateTs) >= s.ttl {
		return nil, false
	}
	return &resp, true
}

// writeHot 以剩余新鲜期为 TTL 写入热缓存
func (s *liveDataService) writeHot(ctx context.Context, key repository.LiveDataKey, resp *dto.LiveDataResponse) {
	if s.cache == nil {
		return
	}
	remaining := s.ttl - s.now().Sub(resp.UpdateTs)
	if remaining <= 0 {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.SetCache(ctx, cacheKey(key), b, remaining); err != nil {
		s.logger.Warn("写入热缓存失败", zap.String("key", cacheKey(key)), zap.Error(err))
	}
}

// ────────────────────── History ──────────────────────

func (s *liveDataService) History(ctx context.Context, kind model.LiveDataKind, courseID, subType string, limit int) ([]dto.LiveDataHistoryItem, error) {
	// 讨论版按 key 原地覆盖，无论版面类型都没有历史
	if kind == model.LiveDataBoard {
		return nil, ErrNoLiveDataHistory
	}
	subType = ""
	policy, err := PolicyFor(kind, subType)
	if err != nil {
		return nil, err
	}
	if policy != PolicyAppend {
		return nil, ErrNoLiveDataHistory
	}

	entries, err := s.repo.LiveData.History(ctx, repository.LiveDataKey{
		CourseID: courseID, Kind: kind, SubType: subType,
	}, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.LiveDataHistoryItem, len(entries))
	for i, e := range entries {
		items[i] = dto.LiveDataHistoryItem{
			Content: json.RawMessage(e.Content),
			FetchOK: e.FetchOK,
			FetchTs: e.FetchTs,
		}
	}
	return items, nil
}

func toLiveDataResponse(e *model.LiveDataEntry) *dto.LiveDataResponse {
	return &dto.LiveDataResponse{
		CourseID: e.CourseID,
		Kind:     string(e.Kind),
		SubType:  e.SubType,
		Content:  json.RawMessage(e.Content),
		UpdateTs: e.FetchTs,
		Stale:    !e.FetchOK,
	}
}
