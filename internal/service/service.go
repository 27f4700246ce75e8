package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Course      CourseService
	CourseTable CourseTableService
	User        UserService
	LiveData    LiveDataService
	Export      ExportService
	Social      SocialService
}

// NewService 创建 Service 聚合
// hot 为 nil 时实时数据只走数据库缓存
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	fetcher Fetcher,
	hot HotCache,
	logger *zap.Logger,
) *Service {
	now := time.Now
	courses := NewCourseService(repo, &cfg.Course, logger)
	linker := NewTableLinker(repo, cfg.Course.TableExpiry, logger, now)

	opts := []LiveDataOption{WithLiveDataClock(now)}
	if hot != nil && cfg.LiveData.HotCache {
		opts = append(opts, WithHotCache(hot))
	}

	return &Service{
		Course:      courses,
		CourseTable: NewCourseTableService(repo, courses, linker, &cfg.Course, logger, now),
		User:        NewUserService(repo, courses, linker, logger),
		LiveData:    NewLiveDataService(repo, fetcher, &cfg.LiveData, logger, opts...),
		Export:      NewExportService(repo, courses, &cfg.Course, logger, now),
		Social:      NewSocialService(repo, logger, now),
	}
}
