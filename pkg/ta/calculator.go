package ta

import (
	"fmt"
	"math"
	"sync"
	"time"

	"crypto-profile-trader/internal/model"

	"go.uber.org/zap"
)

// Params 单个 Profile 的指标计算参数
type Params struct {
	UseRSI    bool
	RSIPeriod int

	UseMACD    bool
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	UseEMA  bool
	EMAFast int
	EMASlow int
}

// MinLookback 返回启用指标所需的最小序列长度
func (p Params) MinLookback() int {
	min := 0
	if p.UseRSI && p.RSIPeriod+1 > min {
		min = p.RSIPeriod + 1
	}
	if p.UseMACD && p.MACDSlow+p.MACDSignal-1 > min {
		min = p.MACDSlow + p.MACDSignal - 1
	}
	if p.UseEMA && p.EMASlow > min {
		min = p.EMASlow
	}
	return min
}

// Snapshot 单个评估周期的指标快照，用后即弃。
// Backend 字段仅供诊断，决策逻辑不得依赖。
type Snapshot struct {
	Symbol  string
	Backend string
	Time    time.Time
	Price   float64 // 最新收盘价

	HasRSI bool
	RSI    float64

	HasMACD    bool
	MACD       float64
	MACDSignal float64
	MACDHist   float64

	HasEMA  bool
	EMAFast float64
	EMASlow float64
}

// Calculator 管理各 Symbol 的价格窗口并产出指标快照
type Calculator struct {
	backend Backend
	logger  *zap.Logger

	mu      sync.RWMutex
	history map[string]*model.PriceSeries
	maxLen  int // 滑动窗口上限
}

// NewCalculator 初始化计算器。后端在启动时通过 Resolve 选定，之后不变。
func NewCalculator(backend Backend, logger *zap.Logger) *Calculator {
	return &Calculator{
		backend: backend,
		logger:  logger,
		history: make(map[string]*model.PriceSeries),
		maxLen:  500,
	}
}

// Backend 返回当前选定的后端名 (诊断用)
func (c *Calculator) Backend() string {
	return c.backend.Name()
}

// SetSeries 用一批新抓取的 K 线重建某个 Symbol 的窗口
func (c *Calculator) SetSeries(symbol, interval string, klines []model.KLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	series, ok := c.history[symbol]
	if !ok || series.Interval != interval {
		series = model.NewPriceSeries(symbol, interval, c.maxLen)
		c.history[symbol] = series
	}
	if err := series.Replace(klines); err != nil {
		return fmt.Errorf("rebuild series for %s: %w", symbol, err)
	}
	return nil
}

// Compute 基于当前窗口计算启用的指标。
// 序列长度不足时返回 ErrInsufficientData，调用方跳过本周期。
func (c *Calculator) Compute(symbol string, p Params) (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	series, ok := c.history[symbol]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: no series for %s", ErrInsufficientData, symbol)
	}
	if need := p.MinLookback(); series.Len() < need {
		return Snapshot{}, fmt.Errorf("%w: %s has %d of %d candles",
			ErrInsufficientData, symbol, series.Len(), need)
	}

	closes := series.Closes()
	last, _ := series.Last()

	snap := Snapshot{
		Symbol:  symbol,
		Backend: c.backend.Name(),
		Time:    last.EndTime,
		Price:   last.Close,
	}

	if p.UseRSI {
		rsi := c.backend.RSI(closes, p.RSIPeriod)
		snap.RSI = clamp(rsi[len(rsi)-1], 0, 100)
		snap.HasRSI = true
	}
	if p.UseMACD {
		macd, sig, hist := c.backend.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		n := len(closes) - 1
		snap.MACD = macd[n]
		snap.MACDSignal = sig[n]
		snap.MACDHist = hist[n]
		snap.HasMACD = true
	}
	if p.UseEMA {
		fast := c.backend.EMA(closes, p.EMAFast)
		slow := c.backend.EMA(closes, p.EMASlow)
		n := len(closes) - 1
		snap.EMAFast = fast[n]
		snap.EMASlow = slow[n]
		snap.HasEMA = true
	}

	return snap, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
