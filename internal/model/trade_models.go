package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action 定义了信号引擎的最终决策
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Direction 定义了持仓方向 (本策略只做多，不支持做空)
type Direction string

const (
	DirLong Direction = "long" // 持有基础币
	DirFlat Direction = "flat" // 空仓
)

func (d Direction) String() string {
	return string(d)
}

// Position 定义了单一交易对的持仓状态。
// 只有在订单确认成交后才允许变更，且同一 Symbol 的读写串行化。
type Position struct {
	Symbol     string
	Direction  Direction
	EntryPrice float64   // 开仓均价 (成交回报，非请求价)
	Quantity   float64   // 持有的基础币数量
	EntryTime  time.Time // 开仓时间
}

// IsLong 返回当前是否持仓
func (p Position) IsLong() bool {
	return p.Direction == DirLong && p.Quantity > 0
}

// Balance 账户可用余额。每个决策周期重新获取，绝不跨周期缓存。
type Balance struct {
	QuoteAsset string  // 计价币，例如 USDT
	QuoteFree  float64 // 可用计价币余额
	BaseAsset  string  // 基础币，例如 XRP
	BaseFree   float64 // 可用基础币余额
	FetchedAt  time.Time
}

// OrderRequest 定义了发往交易所的订单
type OrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal // 已按交易所 step size 对齐
	ClientOrderID string          // 用于提交失败后的状态对账
	RequestedAt   time.Time
}

// OrderResult 交易所返回的成交结果
type OrderResult struct {
	Symbol         string
	Side           Side
	OrderID        int64
	ClientOrderID  string
	Status         string  // 交易所订单状态, 例如 FILLED
	FilledQuantity float64 // 实际成交数量
	AvgPrice       float64 // 实际成交均价
	QuoteSpent     float64 // 成交消耗/获得的计价币总额
	ExecutedAt     time.Time
}

// Filled 判断订单是否完全成交
func (r OrderResult) Filled() bool {
	return r.Status == "FILLED" && r.FilledQuantity > 0
}

func (r OrderResult) String() string {
	return fmt.Sprintf("ORDER [%s %s] qty=%.8f avg=%.8f status=%s id=%d",
		r.Side, r.Symbol, r.FilledQuantity, r.AvgPrice, r.Status, r.OrderID)
}
