package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// streamEnvelope 适用于 Binance 组合流的通用响应结构
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tradeEvent 适配 Binance <symbol>@trade 频道数据结构
type tradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// Connector 维护到交易所的 WebSocket 连接，把原始成交流
// 转换为内部 Ticker 并投递到统一输出通道。连接断开后自动重连。
type Connector struct {
	wsURL         string
	symbols       []string
	tickerChannel chan model.Ticker
	logger        *zap.Logger
}

// NewConnector 初始化连接器。wsURL 形如 wss://stream.binance.com:9443。
func NewConnector(wsURL string, symbols []string, logger *zap.Logger) *Connector {
	// 确保通道有足够的缓冲区来应对高频数据
	return &Connector{
		wsURL:         strings.TrimRight(wsURL, "/"),
		symbols:       symbols,
		tickerChannel: make(chan model.Ticker, 2048),
		logger:        logger.With(zap.String("component", "connector")),
	}
}

// GetTickerChannel 供价格缓存消费
func (c *Connector) GetTickerChannel() <-chan model.Ticker {
	return c.tickerChannel
}

// Start 启动连接和读循环，ctx 取消时退出并关闭输出通道
func (c *Connector) Start(ctx context.Context) {
	defer close(c.tickerChannel)

	url := c.streamURL()
	c.logger.Info("Starting market stream", zap.String("url", url), zap.Strings("symbols", c.symbols))

	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.runOnce(ctx, url); err != nil {
			c.logger.Warn("Market stream disconnected, reconnecting...", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// streamURL 组合流地址：/stream?streams=btcusdt@trade/xrpusdt@trade
func (c *Connector) streamURL() string {
	streams := make([]string, 0, len(c.symbols))
	for _, symbol := range c.symbols {
		streams = append(streams, strings.ToLower(symbol)+"@trade")
	}
	return fmt.Sprintf("%s/stream?streams=%s", c.wsURL, strings.Join(streams, "/"))
}

func (c *Connector) runOnce(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	// ctx 取消时强制断开阻塞中的 ReadMessage
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		c.handleMessage(message)
	}
}

func (c *Connector) handleMessage(message []byte) {
	var envelope streamEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil || len(envelope.Data) == 0 {
		return
	}

	var trade tradeEvent
	if err := json.Unmarshal(envelope.Data, &trade); err != nil || trade.EventType != "trade" {
		return
	}

	price, err := service.StringToFloat(trade.Price)
	if err != nil {
		return
	}
	volume, err := service.StringToFloat(trade.Quantity)
	if err != nil {
		return
	}

	ticker := model.Ticker{
		Symbol:    trade.Symbol,
		Timestamp: trade.TradeTime,
		Price:     price,
		Volume:    volume,
	}

	// 使用 select/default 防止阻塞读循环
	select {
	case c.tickerChannel <- ticker:
	default:
		c.logger.Warn("Ticker channel full! Dropping trade data.", zap.String("symbol", trade.Symbol))
	}
}
