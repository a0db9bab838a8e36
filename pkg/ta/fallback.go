package ta

// FallbackBackend 按公式直接计算指标，不依赖任何第三方库。
// 对齐方式与 talib 一致：输出与输入等长，未就绪区间填 0。
type FallbackBackend struct{}

func NewFallbackBackend() *FallbackBackend {
	return &FallbackBackend{}
}

func (b *FallbackBackend) Name() string {
	return "fallback"
}

// RSI Wilder 平滑：首个均值取前 period 个涨跌的简单平均，之后递推。
// 涨跌幅均为零时输出 0，与 talib 的处理一致。
func (b *FallbackBackend) RSI(close []float64, period int) []float64 {
	out := make([]float64, len(close))
	if period < 2 || len(close) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

// talib 对接近零的分母统一输出 0，这里沿用同一判断带
func rsiValue(avgGain, avgLoss float64) float64 {
	total := avgGain + avgLoss
	if total < 1e-14 {
		return 0
	}
	return 100 * avgGain / total
}

func (b *FallbackBackend) EMA(close []float64, period int) []float64 {
	return emaSeries(close, period)
}

// MACD 快慢 EMA 之差加 signal EMA，逐步复刻 talib 的计算次序：
// 快慢线各自从 period-1 处播种，macd 线从 slow+signal-3 起写入差值，
// signal 线对整条含前导 0 的 macd 序列递推，histogram 从 slow+signal-2 起有效。
func (b *FallbackBackend) MACD(close []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	n := len(close)
	macd = make([]float64, n)
	hist = make([]float64, n)

	lookback := slow + signal - 2
	if fast <= 0 || slow <= fast || signal <= 0 || n <= lookback {
		sig = make([]float64, n)
		return macd, sig, hist
	}

	fastEMA := emaSeries(close, fast)
	slowEMA := emaSeries(close, slow)

	for i := lookback - 1; i < n; i++ {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	sig = emaSeries(macd, signal)

	for i := lookback; i < n; i++ {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

// emaSeries 计算 EMA：种子取前 period 个值的简单平均，落在 period-1 处，
// 之后按 2/(period+1) 递推到序列末尾。
func emaSeries(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	k := 2.0 / float64(period+1)
	var sum float64
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	prev := sum / float64(period)
	out[period-1] = prev

	for i := period; i < len(data); i++ {
		prev += (data[i] - prev) * k
		out[i] = prev
	}
	return out
}
