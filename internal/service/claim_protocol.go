package service

import (
	"context"
	"errors"
	"time"

	"rewards_backend/internal/util"
	"rewards_backend/pkg/logger"
	"rewards_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// 幂等申领协议的两块积木：
// runTxn 对单条记录的CAS写做有界重试（对应底层存储的自动冲突重试），
// claimSaga 把跨多条记录的一次申领串成可逆序回滚的步骤列表 ——
// 存储不提供跨键原子性，提交后校验 + 补偿回滚就是它的替代品。

// runTxn 重试 fn 直到成功或写冲突次数耗尽；退避按次数递增。
// 非冲突错误原样透出，超时/取消一律折算成 TransactionFailed，
// 调用方必须重新读状态再决定下一步（写可能已经落盘）。
func runTxn(ctx context.Context, retries int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < retries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, util.ErrWriteConflict) {
			return err
		}
		monitoring.TxRetryCounter.Inc()
		select {
		case <-ctx.Done():
			return util.ErrTransactionFailed
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	return util.ErrTransactionFailed
}

type sagaStep struct {
	name     string
	run      func(ctx context.Context) error
	rollback func(ctx context.Context) error
}

// claimSaga 一次申领尝试的显式状态对象
type claimSaga struct {
	name string
	done []sagaStep
}

func newClaimSaga(name string) *claimSaga {
	return &claimSaga{name: name}
}

// step 执行一步；失败时把已完成的步骤逆序回滚后返回原错误。
// 回滚本身失败只记日志——补偿写是幂等的，后续人工或重放可以补救。
func (s *claimSaga) step(ctx context.Context, name string, run, rollback func(ctx context.Context) error) error {
	if err := run(ctx); err != nil {
		s.unwind(ctx)
		return err
	}
	s.done = append(s.done, sagaStep{name: name, run: run, rollback: rollback})
	return nil
}

func (s *claimSaga) unwind(ctx context.Context) {
	for i := len(s.done) - 1; i >= 0; i-- {
		st := s.done[i]
		if st.rollback == nil {
			continue
		}
		if err := st.rollback(ctx); err != nil {
			logger.Log.Error("saga rollback failed",
				zap.String("saga", s.name),
				zap.String("step", st.name),
				zap.Error(err))
		}
	}
	s.done = nil
}
