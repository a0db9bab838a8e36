package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/position"
	"crypto-profile-trader/internal/service"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// Manager 把交易决策转换为具体订单并执行。
// balanceMu 是进程级余额锁：从读取余额到提交订单的区间互斥，
// 防止多个 Profile 基于同一份余额同时做出买入决策而透支。
type Manager struct {
	exchange Exchange
	tracker  *position.Tracker
	logger   *zap.Logger

	balanceMu sync.Mutex

	filterMu sync.Mutex
	filters  map[string]Filters // Symbol 的下单约束在进程内缓存

	maxAttempts int
	callTimeout time.Duration
}

// NewManager 初始化执行管理器
func NewManager(exchange Exchange, tracker *position.Tracker, logger *zap.Logger) *Manager {
	return &Manager{
		exchange:    exchange,
		tracker:     tracker,
		logger:      logger,
		filters:     make(map[string]Filters),
		maxAttempts: 4,
		callTimeout: 10 * time.Second,
	}
}

// Execute 执行一次非 hold 决策。hintPrice 是调用方已知的最新价格，
// <=0 时会再查一次行情。成交确认后才更新持仓，且写入的是成交回报值。
func (m *Manager) Execute(ctx context.Context, prof *service.Profile, action model.Action, hintPrice float64) (*model.OrderResult, error) {
	switch action {
	case model.ActionBuy:
		return m.executeBuy(ctx, prof, hintPrice)
	case model.ActionSell:
		return m.executeSell(ctx, prof, hintPrice)
	default:
		return nil, nil
	}
}

func (m *Manager) executeBuy(ctx context.Context, prof *service.Profile, hintPrice float64) (*model.OrderResult, error) {
	filters, err := m.symbolFilters(ctx, prof.Symbol)
	if err != nil {
		return nil, err
	}

	// 余额锁覆盖 取余额 -> 定量 -> 提交 -> 持仓更新 的全程
	m.balanceMu.Lock()
	defer m.balanceMu.Unlock()

	bal, err := m.fetchBalance(ctx, prof)
	if err != nil {
		return nil, err
	}

	price, err := m.resolvePrice(ctx, prof.Symbol, hintPrice)
	if err != nil {
		return nil, err
	}

	qty, err := BuyQuantity(bal.QuoteFree, price, prof.CommissionRate, prof.SafetyMargin, filters)
	if err != nil {
		return nil, err
	}

	req := model.OrderRequest{
		Symbol:        prof.Symbol,
		Side:          model.SideBuy,
		Quantity:      qty,
		ClientOrderID: newClientOrderID(prof.Symbol),
		RequestedAt:   time.Now(),
	}
	result, err := m.submitWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	m.tracker.MarkEntered(ctx, prof.Symbol, result.AvgPrice, result.FilledQuantity, result.ExecutedAt)
	return result, nil
}

func (m *Manager) executeSell(ctx context.Context, prof *service.Profile, hintPrice float64) (*model.OrderResult, error) {
	pos := m.tracker.Current(prof.Symbol)
	if !pos.IsLong() {
		m.logger.Warn("Sell requested with no open position", zap.String("symbol", prof.Symbol))
		return nil, nil
	}

	filters, err := m.symbolFilters(ctx, prof.Symbol)
	if err != nil {
		return nil, err
	}

	m.balanceMu.Lock()
	defer m.balanceMu.Unlock()

	price, err := m.resolvePrice(ctx, prof.Symbol, hintPrice)
	if err != nil {
		return nil, err
	}

	// 以账户实际可用的基础币为准：跟踪的持仓数量可能因为
	// 手续费以基础币扣除或进程外的操作而高于可卖数量
	bal, err := m.fetchBalance(ctx, prof)
	if err != nil {
		return nil, err
	}
	held := pos.Quantity
	if bal.BaseFree < held {
		m.logger.Warn("Free base balance below tracked position, selling free balance",
			zap.String("symbol", prof.Symbol),
			zap.Float64("tracked", held),
			zap.Float64("free", bal.BaseFree))
		held = bal.BaseFree
	}

	qty, err := SellQuantity(held, price, filters)
	if err != nil {
		return nil, err
	}

	req := model.OrderRequest{
		Symbol:        prof.Symbol,
		Side:          model.SideSell,
		Quantity:      qty,
		ClientOrderID: newClientOrderID(prof.Symbol),
		RequestedAt:   time.Now(),
	}
	result, err := m.submitWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	m.tracker.MarkExited(ctx, prof.Symbol, result.ExecutedAt)
	return result, nil
}

// submitWithRetry 同一周期内最多提交 maxAttempts 次：
// 可重试错误走有上限的指数退避，不可重试错误立即失败且不碰持仓。
// 重试耗尽后放弃前对账一次，避免漏掉可能已成交的订单。
func (m *Manager) submitWithRetry(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    8 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
		result, err := m.exchange.SubmitOrder(callCtx, req)
		cancel()

		if err == nil {
			if !result.Filled() {
				return nil, fmt.Errorf("order %s not filled: status %s", req.ClientOrderID, result.Status)
			}
			return &result, nil
		}
		if !IsRetryable(err) {
			return nil, fmt.Errorf("submit order %s: %w", req.ClientOrderID, err)
		}

		lastErr = err
		wait := b.Duration()
		m.logger.Warn("Retryable order error",
			zap.String("symbol", req.Symbol),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			// 停机也要先对账，不能把订单留在未知状态
			if rec := m.reconcile(ctx, req); rec != nil {
				return rec, nil
			}
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if rec := m.reconcile(ctx, req); rec != nil {
		return rec, nil
	}
	return nil, fmt.Errorf("submit order %s after %d attempts: %w", req.ClientOrderID, m.maxAttempts, lastErr)
}

// reconcile 按 client order id 查一次订单状态。
// 已成交则返回结果，否则返回 nil 由调用方宣告周期失败。
func (m *Manager) reconcile(ctx context.Context, req model.OrderRequest) *model.OrderResult {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.callTimeout)
	defer cancel()

	result, err := m.exchange.FetchOrderStatus(callCtx, req.Symbol, req.ClientOrderID)
	if err != nil {
		m.logger.Error("Order reconciliation failed",
			zap.String("symbol", req.Symbol),
			zap.String("client_order_id", req.ClientOrderID),
			zap.Error(err))
		return nil
	}
	if result.Filled() {
		m.logger.Warn("Order filled despite submit errors, recovered via reconciliation",
			zap.String("symbol", req.Symbol),
			zap.String("client_order_id", req.ClientOrderID))
		return &result
	}
	return nil
}

// symbolFilters 惰性拉取并缓存 Symbol 的下单约束
func (m *Manager) symbolFilters(ctx context.Context, symbol string) (Filters, error) {
	m.filterMu.Lock()
	defer m.filterMu.Unlock()

	if f, ok := m.filters[symbol]; ok {
		return f, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	f, err := m.exchange.FetchFilters(callCtx, symbol)
	if err != nil {
		return Filters{}, err
	}
	m.filters[symbol] = f
	return f, nil
}

// fetchBalance 每次决策都重新读取余额，杜绝跨周期的陈旧余额
func (m *Manager) fetchBalance(ctx context.Context, prof *service.Profile) (model.Balance, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	return m.exchange.FetchBalance(callCtx, prof.QuoteAsset, prof.BaseAsset)
}

func (m *Manager) resolvePrice(ctx context.Context, symbol string, hintPrice float64) (float64, error) {
	if hintPrice > 0 {
		return hintPrice, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	return m.exchange.FetchPrice(callCtx, symbol)
}

func newClientOrderID(symbol string) string {
	return fmt.Sprintf("cpt-%s-%d", strings.ToLower(symbol), time.Now().UnixNano())
}
