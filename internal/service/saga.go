package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// sagaStep 一次单聚合写入及其补偿
type sagaStep struct {
	name       string
	action     func(ctx context.Context) error
	compensate func(ctx context.Context) error // nil 表示无需撤销
}

// saga 按顺序执行多个单聚合写入
//
// 某一步失败时按逆序执行已完成步骤的补偿，然后返回该步的错误。
// 补偿本身失败意味着两个聚合已不一致，返回 ErrConsistency 并记录 error 日志。
type saga struct {
	name   string
	steps  []sagaStep
	logger *zap.Logger
}

func newSaga(name string, logger *zap.Logger) *saga {
	return &saga{name: name, logger: logger}
}

func (s *saga) step(name string, action, compensate func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, action: action, compensate: compensate})
	return s
}

func (s *saga) run(ctx context.Context) error {
	done := make([]sagaStep, 0, len(s.steps))
	for _, st := range s.steps {
		err := st.action(ctx)
		if err == nil {
			done = append(done, st)
			continue
		}

		// 补偿不受调用方取消影响
		if cerr := s.rollback(context.WithoutCancel(ctx), done); cerr != nil {
			s.logger.Error("补偿写入失败，数据已不一致",
				zap.String("saga", s.name),
				zap.String("failed_step", st.name),
				zap.NamedError("cause", err),
				zap.NamedError("compensation_error", cerr),
			)
			return errors.Join(
				pkgerrors.Newf(pkgerrors.ErrConsistency, "%s: 补偿写入失败，需要人工修复", s.name),
				err,
				cerr,
			)
		}

		s.logger.Warn("步骤失败，已完成补偿",
			zap.String("saga", s.name),
			zap.String("failed_step", st.name),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *saga) rollback(ctx context.Context, done []sagaStep) error {
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].compensate == nil {
			continue
		}
		if err := done[i].compensate(ctx); err != nil {
			return err
		}
	}
	return nil
}
