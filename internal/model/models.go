package model

import (
	"fmt"
	"time"
)

// Ticker 代表最小粒度的市场数据（成交或价格快照）
type Ticker struct {
	Symbol    string  // 所属交易对，例如 "BTCUSDT"
	Timestamp int64   // 毫秒时间戳
	Price     float64 // 最新成交价
	Volume    float64 // 交易量 (0 表示价格快照)
}

// KLine 代表一根已完成的 K 线
type KLine struct {
	Symbol    string // 所属交易对
	Interval  string // 周期，例如 "1m", "5m", "1h"
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	StartTime time.Time
	EndTime   time.Time
}

// PriceSeries 是单一交易对/周期的有序 K 线窗口。
// 窗口内时间戳严格递增，长度受 maxLen 限制（滑动窗口）。
type PriceSeries struct {
	Symbol   string
	Interval string
	klines   []KLine
	maxLen   int
}

// NewPriceSeries 创建一个空的价格序列，maxLen 为滑动窗口上限
func NewPriceSeries(symbol, interval string, maxLen int) *PriceSeries {
	return &PriceSeries{
		Symbol:   symbol,
		Interval: interval,
		klines:   make([]KLine, 0, maxLen),
		maxLen:   maxLen,
	}
}

// Append 追加一根 K 线。时间戳必须严格递增，否则拒绝。
func (ps *PriceSeries) Append(k KLine) error {
	if n := len(ps.klines); n > 0 {
		last := ps.klines[n-1]
		if !k.StartTime.After(last.StartTime) {
			return fmt.Errorf("kline start %s not after previous %s for %s",
				k.StartTime, last.StartTime, ps.Symbol)
		}
	}
	ps.klines = append(ps.klines, k)
	if ps.maxLen > 0 && len(ps.klines) > ps.maxLen {
		ps.klines = ps.klines[len(ps.klines)-ps.maxLen:]
	}
	return nil
}

// Replace 用一批新抓取的 K 线重建窗口（按时间升序校验）
func (ps *PriceSeries) Replace(klines []KLine) error {
	ps.klines = ps.klines[:0]
	for _, k := range klines {
		if err := ps.Append(k); err != nil {
			return err
		}
	}
	return nil
}

// Closes 返回收盘价序列
func (ps *PriceSeries) Closes() []float64 {
	out := make([]float64, len(ps.klines))
	for i, k := range ps.klines {
		out[i] = k.Close
	}
	return out
}

// Last 返回最后一根 K 线
func (ps *PriceSeries) Last() (KLine, bool) {
	if len(ps.klines) == 0 {
		return KLine{}, false
	}
	return ps.klines[len(ps.klines)-1], true
}

func (ps *PriceSeries) Len() int {
	return len(ps.klines)
}
