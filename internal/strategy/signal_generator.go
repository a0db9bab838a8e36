package strategy

import (
	"sync"

	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/service"
	"crypto-profile-trader/pkg/ta"

	"go.uber.org/zap"
)

// SignalGenerator 负责把指标快照映射为交易决策。
// MACD/EMA 的交叉检测需要上一周期的快照，因此按 Symbol 保留一份历史，
// 除此之外 Evaluate 是 (当前快照, 上一快照, 持仓, 阈值) 的纯函数。
type SignalGenerator struct {
	mu     sync.RWMutex
	prev   map[string]ta.Snapshot
	logger *zap.Logger
}

// NewSignalGenerator 初始化信号生成器
func NewSignalGenerator(logger *zap.Logger) *SignalGenerator {
	return &SignalGenerator{
		prev:   make(map[string]ta.Snapshot),
		logger: logger,
	}
}

// Evaluate 根据当前快照、Profile 阈值和持仓状态产出 buy/sell/hold。
// 不变量：已持仓时绝不产出 buy，空仓时绝不产出 sell；
// 指标投票冲突时保守地产出 hold。
func (sg *SignalGenerator) Evaluate(snap ta.Snapshot, prof *service.Profile, pos model.Position) model.Action {
	prev, hasPrev := sg.previous(snap.Symbol)

	votes := []Vote{
		rsiVote(snap, prof),
		macdVote(snap, prev, hasPrev),
		emaVote(snap, prev, hasPrev),
	}
	action := aggregate(votes)

	sg.logger.Debug("Indicator votes",
		zap.String("symbol", snap.Symbol),
		zap.Stringer("rsi", votes[0]),
		zap.Stringer("macd", votes[1]),
		zap.Stringer("ema", votes[2]),
		zap.String("aggregated", string(action)))

	// 持仓闸门：重复开仓和无仓可卖都降级为 hold
	if action == model.ActionBuy && pos.IsLong() {
		action = model.ActionHold
	}
	if action == model.ActionSell && !pos.IsLong() {
		action = model.ActionHold
	}

	sg.remember(snap)
	return action
}

// previous 返回 Symbol 上一周期的快照
func (sg *SignalGenerator) previous(symbol string) (ta.Snapshot, bool) {
	sg.mu.RLock()
	defer sg.mu.RUnlock()
	s, ok := sg.prev[symbol]
	return s, ok
}

func (sg *SignalGenerator) remember(snap ta.Snapshot) {
	sg.mu.Lock()
	defer sg.mu.Unlock()
	sg.prev[snap.Symbol] = snap
}

// rsiVote 低于超卖线投 buy，高于超买线投 sell
func rsiVote(snap ta.Snapshot, prof *service.Profile) Vote {
	if !snap.HasRSI {
		return VoteAbstain
	}
	switch {
	case snap.RSI < prof.RSIOversold:
		return VoteBuy
	case snap.RSI > prof.RSIOverbought:
		return VoteSell
	default:
		return VoteHold
	}
}

// macdVote histogram 相对上一周期由非正转正投 buy，由非负转负投 sell。
// 没有上一周期快照时无法判断交叉，投 hold。
func macdVote(snap, prev ta.Snapshot, hasPrev bool) Vote {
	if !snap.HasMACD {
		return VoteAbstain
	}
	if !hasPrev || !prev.HasMACD {
		return VoteHold
	}
	switch {
	case prev.MACDHist <= 0 && snap.MACDHist > 0:
		return VoteBuy
	case prev.MACDHist >= 0 && snap.MACDHist < 0:
		return VoteSell
	default:
		return VoteHold
	}
}

// emaVote 快线上穿慢线投 buy，下穿投 sell
func emaVote(snap, prev ta.Snapshot, hasPrev bool) Vote {
	if !snap.HasEMA {
		return VoteAbstain
	}
	if !hasPrev || !prev.HasEMA {
		return VoteHold
	}
	prevDiff := prev.EMAFast - prev.EMASlow
	diff := snap.EMAFast - snap.EMASlow
	switch {
	case prevDiff <= 0 && diff > 0:
		return VoteBuy
	case prevDiff >= 0 && diff < 0:
		return VoteSell
	default:
		return VoteHold
	}
}

// aggregate 汇总所有非弃权投票。buy 与 sell 同时出现视为冲突，产出 hold。
func aggregate(votes []Vote) model.Action {
	var hasBuy, hasSell bool
	for _, v := range votes {
		switch v {
		case VoteBuy:
			hasBuy = true
		case VoteSell:
			hasSell = true
		}
	}
	switch {
	case hasBuy && hasSell:
		return model.ActionHold
	case hasBuy:
		return model.ActionBuy
	case hasSell:
		return model.ActionSell
	default:
		return model.ActionHold
	}
}
