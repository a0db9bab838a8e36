package trader

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 用 cron 驱动所有 Profile 的评估循环。
// SkipIfStillRunning 保证同一 Symbol 的周期严格串行：
// 上一周期的 决策->执行 还没结束时，新周期直接跳过。
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler 初始化调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		logger: logger,
	}
}

// Register 按 Profile 的轮询间隔注册一个循环
func (s *Scheduler) Register(ctx context.Context, t *Trader) error {
	spec := fmt.Sprintf("@every %s", t.Interval())
	if _, err := s.cron.AddFunc(spec, func() { t.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("register %s: %w", t.Symbol(), err)
	}
	s.logger.Info("Trading loop registered",
		zap.String("symbol", t.Symbol()),
		zap.Duration("interval", t.Interval()))
	return nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的周期结束（包括订单重试和对账）
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped, all cycles drained")
}
