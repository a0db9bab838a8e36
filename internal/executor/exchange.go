package executor

import (
	"context"
	"errors"
	"net"

	"crypto-profile-trader/internal/model"

	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

// Filters 是交易所对某个 Symbol 的下单约束
type Filters struct {
	StepSize    decimal.Decimal // 数量最小步长
	MinQty      decimal.Decimal // 最小下单数量
	MinNotional decimal.Decimal // 最小名义价值 (数量*价格)
}

// Exchange 是交易所访问接口。所有调用都可能失败且必须带超时。
type Exchange interface {
	// FetchCandles 拉取最近 limit 根已收盘 K 线，按时间升序
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.KLine, error)

	// FetchBalance 获取计价币和基础币的可用余额。每次决策前重新调用，绝不缓存。
	FetchBalance(ctx context.Context, quoteAsset, baseAsset string) (model.Balance, error)

	// FetchPrice 获取最新成交价
	FetchPrice(ctx context.Context, symbol string) (float64, error)

	// FetchFilters 获取 Symbol 的下单约束
	FetchFilters(ctx context.Context, symbol string) (Filters, error)

	// SubmitOrder 提交市价单
	SubmitOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error)

	// FetchOrderStatus 按 client order id 查询订单状态，用于提交失败后的对账
	FetchOrderStatus(ctx context.Context, symbol, clientOrderID string) (model.OrderResult, error)
}

// IsRetryable 判断交易所错误是否值得在本周期内重试。
// 超时和限频可重试；资金不足、非法交易对、订单被拒都立即失败。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1001, // DISCONNECTED
			-1003, // TOO_MANY_REQUESTS
			-1007, // TIMEOUT
			-1016: // SERVICE_SHUTTING_DOWN
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
