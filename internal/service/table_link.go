package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/repository"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// ── 课表关联业务错误 ──

var (
	ErrUserNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "用户不存在")
	ErrCourseTableNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "课表不存在")
	ErrTableAlreadyLinked  = pkgerrors.New(pkgerrors.ErrConflict, "课表已关联到该用户")
	ErrTableOwnedByOther   = pkgerrors.New(pkgerrors.ErrConflict, "课表已关联到其他用户")
)

// TableLinker 维护课表归属与用户课表列表之间的一致性
//
// 两个聚合无法在同一事务中写入，写入顺序固定为先课表后用户；
// 用户写入失败时撤销课表写入。不变式：课表归属某用户时，该用户的课表列表必含此课表。
type TableLinker struct {
	repo        *repository.Repository
	tableExpiry time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewTableLinker 创建 TableLinker；now 为 nil 时使用 time.Now
func NewTableLinker(repo *repository.Repository, tableExpiry time.Duration, logger *zap.Logger, now func() time.Time) *TableLinker {
	if now == nil {
		now = time.Now
	}
	return &TableLinker{repo: repo, tableExpiry: tableExpiry, now: now, logger: logger}
}

// Link 将课表关联到用户
//
// 前置检查依次为：用户存在、用户课表列表不含该课表、课表存在、课表无归属或归属本人。
// 课表写入与用户写入均带版本检查，并发关联同一课表时后到者得到 ErrOptimisticLock。
func (l *TableLinker) Link(ctx context.Context, tableID, userID string) (*model.User, error) {
	user, err := l.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.HasCourseTable(tableID) {
		return nil, ErrTableAlreadyLinked
	}

	table, err := l.repo.CourseTable.GetByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseTableNotFound
		}
		return nil, err
	}
	if table.UserID != nil && !table.OwnedBy(userID) {
		return nil, ErrTableOwnedByOther
	}

	sg := newSaga("关联课表", l.logger)

	// 已归属本人时跳过，无需撤销
	if table.IsGuest() {
		sg.step("写入课表归属",
			func(ctx context.Context) error {
				table.Claim(userID)
				return l.repo.CourseTable.Update(ctx, table)
			},
			func(ctx context.Context) error {
				table.Release(l.now().Add(l.tableExpiry))
				return l.repo.CourseTable.Update(ctx, table)
			},
		)
	}
	sg.step("追加用户课表",
		func(ctx context.Context) error {
			user.CourseTables = append(user.CourseTables, tableID)
			if err := l.repo.User.Update(ctx, user); err != nil {
				user.CourseTables = user.CourseTables[:len(user.CourseTables)-1]
				return err
			}
			return nil
		},
		nil,
	)

	if err := sg.run(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("课表已关联到用户",
		zap.String("table_id", tableID),
		zap.String("user_id", userID),
	)
	return user, nil
}

// CreateOwned 直接创建归属于用户的课表
// 先创建课表再追加到用户课表列表；追加失败时删除课表
func (l *TableLinker) CreateOwned(ctx context.Context, table *model.CourseTable, userID string) (*model.User, error) {
	user, err := l.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	table.Claim(userID)

	err = newSaga("创建用户课表", l.logger).
		step("创建课表",
			func(ctx context.Context) error {
				return l.repo.CourseTable.Create(ctx, table)
			},
			func(ctx context.Context) error {
				return l.repo.CourseTable.Delete(ctx, table.ID)
			},
		).
		step("追加用户课表",
			func(ctx context.Context) error {
				user.CourseTables = append(user.CourseTables, table.ID)
				if err := l.repo.User.Update(ctx, user); err != nil {
					user.CourseTables = user.CourseTables[:len(user.CourseTables)-1]
					return err
				}
				return nil
			},
			nil,
		).
		run(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}
