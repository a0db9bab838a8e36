package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/service"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceExchange 基于 go-binance SDK 实现 Exchange
type BinanceExchange struct {
	client *binance.Client
	logger *zap.Logger
}

// NewBinanceExchange 初始化现货客户端。restURL 为空时使用 SDK 默认地址。
func NewBinanceExchange(apiKey, secretKey, restURL string, logger *zap.Logger) *BinanceExchange {
	client := binance.NewClient(apiKey, secretKey)
	if url := strings.TrimSpace(restURL); url != "" {
		client.BaseURL = url
	}
	return &BinanceExchange{
		client: client,
		logger: logger.With(zap.String("exchange", "binance")),
	}
}

func (e *BinanceExchange) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.KLine, error) {
	if limit <= 0 {
		limit = 100
	}
	klines, err := e.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
	}

	out := make([]model.KLine, 0, len(klines))
	for _, k := range klines {
		open, err1 := service.StringToFloat(k.Open)
		high, err2 := service.StringToFloat(k.High)
		low, err3 := service.StringToFloat(k.Low)
		closePx, err4 := service.StringToFloat(k.Close)
		volume, err5 := service.StringToFloat(k.Volume)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return nil, fmt.Errorf("malformed kline for %s at %d", symbol, k.OpenTime)
		}
		out = append(out, model.KLine{
			Symbol:    symbol,
			Interval:  interval,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePx,
			Volume:    volume,
			StartTime: time.UnixMilli(k.OpenTime),
			EndTime:   time.UnixMilli(k.CloseTime),
		})
	}
	return out, nil
}

func (e *BinanceExchange) FetchBalance(ctx context.Context, quoteAsset, baseAsset string) (model.Balance, error) {
	account, err := e.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return model.Balance{}, fmt.Errorf("fetch account: %w", err)
	}

	bal := model.Balance{
		QuoteAsset: quoteAsset,
		BaseAsset:  baseAsset,
		FetchedAt:  time.Now(),
	}
	for _, b := range account.Balances {
		free, err := service.StringToFloat(b.Free)
		if err != nil {
			continue
		}
		switch b.Asset {
		case quoteAsset:
			bal.QuoteFree = free
		case baseAsset:
			bal.BaseFree = free
		}
	}
	return bal, nil
}

func (e *BinanceExchange) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", symbol)
	}
	price, err := service.StringToFloat(prices[0].Price)
	if err != nil {
		return 0, fmt.Errorf("malformed price %q for %s", prices[0].Price, symbol)
	}
	return price, nil
}

func (e *BinanceExchange) FetchFilters(ctx context.Context, symbol string) (Filters, error) {
	info, err := e.client.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return Filters{}, fmt.Errorf("fetch exchange info %s: %w", symbol, err)
	}

	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		var f Filters
		if lot := s.LotSizeFilter(); lot != nil {
			if f.StepSize, err = decimal.NewFromString(lot.StepSize); err != nil {
				return Filters{}, fmt.Errorf("malformed step size %q: %w", lot.StepSize, err)
			}
			if f.MinQty, err = decimal.NewFromString(lot.MinQuantity); err != nil {
				return Filters{}, fmt.Errorf("malformed min qty %q: %w", lot.MinQuantity, err)
			}
		}
		if notional := s.NotionalFilter(); notional != nil {
			if f.MinNotional, err = decimal.NewFromString(notional.MinNotional); err != nil {
				return Filters{}, fmt.Errorf("malformed min notional %q: %w", notional.MinNotional, err)
			}
		}
		return f, nil
	}
	return Filters{}, fmt.Errorf("symbol %s not found in exchange info", symbol)
}

func (e *BinanceExchange) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideType(req.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(req.Quantity.String())
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return model.OrderResult{}, err
	}

	result := model.OrderResult{
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Status:        string(resp.Status),
		ExecutedAt:    time.UnixMilli(resp.TransactTime),
	}
	result.FilledQuantity, _ = service.StringToFloat(resp.ExecutedQuantity)
	result.QuoteSpent, _ = service.StringToFloat(resp.CummulativeQuoteQuantity)
	result.AvgPrice = avgFillPrice(resp.Fills, result.QuoteSpent, result.FilledQuantity)

	return result, nil
}

func (e *BinanceExchange) FetchOrderStatus(ctx context.Context, symbol, clientOrderID string) (model.OrderResult, error) {
	order, err := e.client.NewGetOrderService().
		Symbol(symbol).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("fetch order status %s/%s: %w", symbol, clientOrderID, err)
	}

	result := model.OrderResult{
		Symbol:        symbol,
		Side:          model.Side(order.Side),
		OrderID:       order.OrderID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
		ExecutedAt:    time.UnixMilli(order.UpdateTime),
	}
	result.FilledQuantity, _ = service.StringToFloat(order.ExecutedQuantity)
	result.QuoteSpent, _ = service.StringToFloat(order.CummulativeQuoteQuantity)
	if result.FilledQuantity > 0 {
		result.AvgPrice = result.QuoteSpent / result.FilledQuantity
	}
	return result, nil
}

// avgFillPrice 按成交明细加权计算均价，缺少明细时退化为 总额/数量
func avgFillPrice(fills []*binance.Fill, quoteTotal, qtyTotal float64) float64 {
	var value, qty float64
	for _, f := range fills {
		p, err1 := service.StringToFloat(f.Price)
		q, err2 := service.StringToFloat(f.Quantity)
		if err1 != nil || err2 != nil {
			continue
		}
		value += p * q
		qty += q
	}
	if qty > 0 {
		return value / qty
	}
	if qtyTotal > 0 {
		return quoteTotal / qtyTotal
	}
	return 0
}
