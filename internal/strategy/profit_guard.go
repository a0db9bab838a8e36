package strategy

import (
	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/service"

	"go.uber.org/zap"
)

// ApplyExitGuards 用持仓盈亏对指标决策做二次修正：
// 止损/止盈可以强制卖出，min-profit 可以否决指标卖出。
// 空仓或未启用任何保护时原样返回。
func ApplyExitGuards(action model.Action, prof *service.Profile, pos model.Position, price float64, logger *zap.Logger) model.Action {
	if !pos.IsLong() || pos.EntryPrice <= 0 || price <= 0 {
		return action
	}

	change := (price - pos.EntryPrice) / pos.EntryPrice

	if prof.UseStopLoss && change <= -prof.StopLossRatio {
		logger.Warn("Stop loss triggered, forcing exit",
			zap.String("symbol", pos.Symbol),
			zap.Float64("entry", pos.EntryPrice),
			zap.Float64("price", price),
			zap.Float64("change", change))
		return model.ActionSell
	}

	if prof.UseTakeProfit && change >= prof.TakeProfitRatio {
		logger.Info("Take profit reached, forcing exit",
			zap.String("symbol", pos.Symbol),
			zap.Float64("change", change))
		return model.ActionSell
	}

	if action == model.ActionSell && prof.UseMinProfit && change < prof.MinProfitRatio {
		logger.Info("Profit below minimum, sell vetoed",
			zap.String("symbol", pos.Symbol),
			zap.Float64("change", change),
			zap.Float64("min", prof.MinProfitRatio))
		return model.ActionHold
	}

	return action
}
