package model

import (
	"sync"
	"time"
)

// PriceCache 消费 Connector 的 Ticker 流，维护各 Symbol 的最新成交价。
// 下单前的定价优先使用这里的实时价格，过期则回退到 REST 查询。
type PriceCache struct {
	mu     sync.RWMutex
	in     <-chan Ticker
	last   map[string]Ticker
	maxAge time.Duration // 超过该时长视为过期
}

// NewPriceCache 创建价格缓存。maxAge<=0 时使用 10s 默认值。
func NewPriceCache(in <-chan Ticker, maxAge time.Duration) *PriceCache {
	if maxAge <= 0 {
		maxAge = 10 * time.Second
	}
	return &PriceCache{
		in:     in,
		last:   make(map[string]Ticker),
		maxAge: maxAge,
	}
}

// Start 启动消费循环，输入通道关闭时退出
func (pc *PriceCache) Start() {
	for ticker := range pc.in {
		pc.mu.Lock()
		pc.last[ticker.Symbol] = ticker
		pc.mu.Unlock()
	}
}

// Latest 返回 Symbol 的最新价格。没有数据或数据过期时 ok=false。
func (pc *PriceCache) Latest(symbol string) (price float64, ok bool) {
	pc.mu.RLock()
	t, found := pc.last[symbol]
	pc.mu.RUnlock()
	if !found {
		return 0, false
	}
	age := time.Since(time.UnixMilli(t.Timestamp))
	if age > pc.maxAge {
		return 0, false
	}
	return t.Price, true
}
