package ta

import (
	"github.com/markcheno/go-talib"
)

// NativeBackend 包装 go-talib 的指标实现
type NativeBackend struct{}

func NewNativeBackend() *NativeBackend {
	return &NativeBackend{}
}

func (b *NativeBackend) Name() string {
	return "talib"
}

func (b *NativeBackend) RSI(close []float64, period int) []float64 {
	return talib.Rsi(close, period)
}

func (b *NativeBackend) EMA(close []float64, period int) []float64 {
	return talib.Ema(close, period)
}

func (b *NativeBackend) MACD(close []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	return talib.Macd(close, fast, slow, signal)
}
