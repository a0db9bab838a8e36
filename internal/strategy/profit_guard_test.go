package strategy

import (
	"testing"

	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/service"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func guardProfile() *service.Profile {
	return &service.Profile{
		Symbol:          "XRPUSDT",
		UseStopLoss:     true,
		StopLossRatio:   0.03,
		UseTakeProfit:   true,
		TakeProfitRatio: 0.05,
		UseMinProfit:    true,
		MinProfitRatio:  0.01,
	}
}

// 亏损触及止损线时强制离场，覆盖指标的 hold
func TestStopLossForcesSell(t *testing.T) {
	got := ApplyExitGuards(model.ActionHold, guardProfile(), long(), 0.48, zap.NewNop())
	assert.Equal(t, model.ActionSell, got)
}

func TestTakeProfitForcesSell(t *testing.T) {
	got := ApplyExitGuards(model.ActionHold, guardProfile(), long(), 0.53, zap.NewNop())
	assert.Equal(t, model.ActionSell, got)
}

// 盈利不足 min-profit 时否决指标卖出
func TestMinProfitVetoesSell(t *testing.T) {
	got := ApplyExitGuards(model.ActionSell, guardProfile(), long(), 0.501, zap.NewNop())
	assert.Equal(t, model.ActionHold, got)
}

func TestSellAllowedAboveMinProfit(t *testing.T) {
	got := ApplyExitGuards(model.ActionSell, guardProfile(), long(), 0.51, zap.NewNop())
	assert.Equal(t, model.ActionSell, got)
}

// 空仓时保护不生效
func TestGuardsSkipWhenFlat(t *testing.T) {
	got := ApplyExitGuards(model.ActionHold, guardProfile(), flat(), 0.1, zap.NewNop())
	assert.Equal(t, model.ActionHold, got)
}

// 未启用任何保护时决策原样通过
func TestGuardsDisabledPassThrough(t *testing.T) {
	prof := &service.Profile{Symbol: "XRPUSDT"}
	got := ApplyExitGuards(model.ActionSell, prof, long(), 0.3, zap.NewNop())
	assert.Equal(t, model.ActionSell, got)
}
