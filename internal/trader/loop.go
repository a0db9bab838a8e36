package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-profile-trader/internal/executor"
	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/notifier"
	"crypto-profile-trader/internal/position"
	"crypto-profile-trader/internal/service"
	"crypto-profile-trader/internal/strategy"
	"crypto-profile-trader/pkg/ta"

	"go.uber.org/zap"
)

// Trader 是单个 Profile 的评估循环：
// 拉行情 -> 指标快照 -> 信号 -> 执行。任何失败只影响本周期，
// 记日志后等下一次调度，绝不波及其他 Profile。
type Trader struct {
	profile  *service.Profile
	exchange executor.Exchange
	calc     *ta.Calculator
	signals  *strategy.SignalGenerator
	manager  *executor.Manager
	tracker  *position.Tracker
	prices   *model.PriceCache // 可为 nil
	notify   notifier.Notifier
	logger   *zap.Logger

	params      ta.Params
	lookback    int
	cycleBudget time.Duration
}

// NewTrader 组装一个 Profile 的完整管线
func NewTrader(
	prof *service.Profile,
	exchange executor.Exchange,
	calc *ta.Calculator,
	signals *strategy.SignalGenerator,
	manager *executor.Manager,
	tracker *position.Tracker,
	prices *model.PriceCache,
	notify notifier.Notifier,
	logger *zap.Logger,
) *Trader {
	params := indicatorParams(prof)

	// 窗口略大于最长回看，给 EMA 种子留收敛余量
	lookback := params.MinLookback() + 50
	if lookback < 100 {
		lookback = 100
	}

	return &Trader{
		profile:     prof,
		exchange:    exchange,
		calc:        calc,
		signals:     signals,
		manager:     manager,
		tracker:     tracker,
		prices:      prices,
		notify:      notify,
		logger:      logger.With(zap.String("symbol", prof.Symbol)),
		params:      params,
		lookback:    lookback,
		cycleBudget: 45 * time.Second,
	}
}

// Symbol 返回该循环负责的交易对
func (t *Trader) Symbol() string {
	return t.profile.Symbol
}

// Interval 返回调度间隔
func (t *Trader) Interval() time.Duration {
	return t.profile.PollInterval
}

// Warmup 启动时预拉一次历史 K 线，让首个周期就有完整窗口
func (t *Trader) Warmup(ctx context.Context) error {
	klines, err := t.exchange.FetchCandles(ctx, t.profile.Symbol, t.profile.Timeframe, t.lookback)
	if err != nil {
		return fmt.Errorf("warmup %s: %w", t.profile.Symbol, err)
	}
	if err := t.calc.SetSeries(t.profile.Symbol, t.profile.Timeframe, klines); err != nil {
		return fmt.Errorf("warmup %s: %w", t.profile.Symbol, err)
	}
	t.logger.Info("Warmup complete", zap.Int("candles", len(klines)))
	return nil
}

// RunCycle 执行一次完整的评估周期。调度器保证同一 Symbol 不会并发进入。
func (t *Trader) RunCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, t.cycleBudget)
	defer cancel()

	symbol := t.profile.Symbol

	klines, err := t.exchange.FetchCandles(cycleCtx, symbol, t.profile.Timeframe, t.lookback)
	if err != nil {
		t.logger.Error("Cycle failed: fetch candles", zap.Error(err))
		return
	}
	if err := t.calc.SetSeries(symbol, t.profile.Timeframe, klines); err != nil {
		t.logger.Error("Cycle failed: rebuild series", zap.Error(err))
		return
	}

	snap, err := t.calc.Compute(symbol, t.params)
	if err != nil {
		if errors.Is(err, ta.ErrInsufficientData) {
			// 数据不足视为 hold，跳过本周期
			t.logger.Warn("Skipping cycle", zap.Error(err))
		} else {
			t.logger.Error("Cycle failed: compute indicators", zap.Error(err))
		}
		return
	}

	pos := t.tracker.Current(symbol)
	action := t.signals.Evaluate(snap, t.profile, pos)

	price := t.bestPrice(snap)
	action = strategy.ApplyExitGuards(action, t.profile, pos, price, t.logger)

	var result *model.OrderResult
	var execErr error
	if action != model.ActionHold {
		result, execErr = t.manager.Execute(cycleCtx, t.profile, action, price)
		if errors.Is(execErr, executor.ErrBelowMinimumOrderSize) {
			// 无法构造合法订单，降级为 hold，持仓不变
			t.logger.Warn("Order below exchange minimum, degrading to hold", zap.Error(execErr))
			action = model.ActionHold
			execErr = nil
			result = nil
		}
	}

	t.logCycle(snap, action, result, execErr)
	if result != nil && result.Filled() {
		t.notifyFill(result)
	}
}

// bestPrice 优先用实时价格流，过期或缺失时退回最新收盘价
func (t *Trader) bestPrice(snap ta.Snapshot) float64 {
	if t.prices != nil {
		if price, ok := t.prices.Latest(snap.Symbol); ok {
			return price
		}
	}
	return snap.Price
}

// logCycle 每周期输出一条结构化事件：symbol、动作、快照、订单结果/失败原因
func (t *Trader) logCycle(snap ta.Snapshot, action model.Action, result *model.OrderResult, execErr error) {
	fields := []zap.Field{
		zap.String("action", string(action)),
		zap.String("backend", snap.Backend),
		zap.Float64("price", snap.Price),
	}
	if snap.HasRSI {
		fields = append(fields, zap.Float64("rsi", snap.RSI))
	}
	if snap.HasMACD {
		fields = append(fields, zap.Float64("macd_hist", snap.MACDHist))
	}
	if snap.HasEMA {
		fields = append(fields,
			zap.Float64("ema_fast", snap.EMAFast),
			zap.Float64("ema_slow", snap.EMASlow))
	}

	if execErr != nil {
		fields = append(fields, zap.Error(execErr))
		t.logger.Error("Cycle completed with execution failure", fields...)
		return
	}
	if result != nil {
		fields = append(fields,
			zap.Int64("order_id", result.OrderID),
			zap.Float64("filled_qty", result.FilledQuantity),
			zap.Float64("avg_price", result.AvgPrice))
	}
	t.logger.Info("Cycle completed", fields...)
}

func (t *Trader) notifyFill(result *model.OrderResult) {
	msg := fmt.Sprintf("%s %s\nqty: %.6f\navg price: %.6f\ntotal: %.2f %s",
		string(result.Side), result.Symbol,
		result.FilledQuantity, result.AvgPrice,
		result.QuoteSpent, t.profile.QuoteAsset)

	// 通知失败不影响交易流程
	go func() {
		if err := t.notify.Send(msg); err != nil {
			t.logger.Warn("Notification failed", zap.Error(err))
		}
	}()
}

// indicatorParams 把 Profile 的指标配置转换为计算参数
func indicatorParams(prof *service.Profile) ta.Params {
	return ta.Params{
		UseRSI:     prof.UseRSI,
		RSIPeriod:  prof.RSIPeriod,
		UseMACD:    prof.UseMACD,
		MACDFast:   prof.MACDFastPeriod,
		MACDSlow:   prof.MACDSlowPeriod,
		MACDSignal: prof.MACDSignalPeriod,
		UseEMA:     prof.UseEMA,
		EMAFast:    prof.EMAFastPeriod,
		EMASlow:    prof.EMASlowPeriod,
	}
}
