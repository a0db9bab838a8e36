package position

import (
	"context"
	"time"

	"crypto-profile-trader/internal/model"

	"go.uber.org/zap"
	"sync"
)

// Store 是可选的持仓持久化协作方，用于进程重启后恢复状态。
// Tracker 自身的内存状态始终是权威来源。
type Store interface {
	Save(ctx context.Context, pos model.Position) error
	Delete(ctx context.Context, symbol string) error
	LoadAll(ctx context.Context) ([]model.Position, error)
}

// Tracker 是持仓状态的唯一权威。
// 只有执行器确认成交后才调用 MarkEntered/MarkExited，绝不在下单前预写。
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]model.Position
	store     Store // 可为 nil
	logger    *zap.Logger
}

// NewTracker 创建 Tracker，store 传 nil 表示纯内存
func NewTracker(store Store, logger *zap.Logger) *Tracker {
	return &Tracker{
		positions: make(map[string]model.Position),
		store:     store,
		logger:    logger,
	}
}

// Restore 从持久化存储恢复持仓 (崩溃恢复)，无 store 时为 no-op
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	saved, err := t.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pos := range saved {
		t.positions[pos.Symbol] = pos
		t.logger.Info("Restored position",
			zap.String("symbol", pos.Symbol),
			zap.Float64("quantity", pos.Quantity),
			zap.Float64("entry", pos.EntryPrice))
	}
	return nil
}

// Current 返回 Symbol 的当前持仓，没有记录时为空仓
func (t *Tracker) Current(symbol string) model.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if pos, ok := t.positions[symbol]; ok {
		return pos
	}
	return model.Position{Symbol: symbol, Direction: model.DirFlat}
}

// MarkEntered 记录已确认成交的买入。price/quantity 必须是成交回报值。
func (t *Tracker) MarkEntered(ctx context.Context, symbol string, price, quantity float64, at time.Time) {
	pos := model.Position{
		Symbol:     symbol,
		Direction:  model.DirLong,
		EntryPrice: price,
		Quantity:   quantity,
		EntryTime:  at,
	}

	t.mu.Lock()
	t.positions[symbol] = pos
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Save(ctx, pos); err != nil {
			// 持久化失败不影响内存状态，记日志继续
			t.logger.Error("Failed to persist position", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

// MarkExited 记录已确认成交的卖出，持仓回到空仓
func (t *Tracker) MarkExited(ctx context.Context, symbol string, at time.Time) {
	t.mu.Lock()
	delete(t.positions, symbol)
	t.mu.Unlock()

	t.logger.Info("Position closed", zap.String("symbol", symbol), zap.Time("exited_at", at))

	if t.store != nil {
		if err := t.store.Delete(ctx, symbol); err != nil {
			t.logger.Error("Failed to delete persisted position", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
