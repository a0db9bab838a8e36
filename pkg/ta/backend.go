package ta

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

var (
	// ErrInsufficientData 价格序列短于所需回看长度，本周期应跳过 (视为 hold)
	ErrInsufficientData = errors.New("ta: insufficient data")
	// ErrBackendUnavailable 后端自检失败
	ErrBackendUnavailable = errors.New("ta: backend unavailable")
)

// Backend 是指标计算后端的能力接口。
// native 后端包装 go-talib，fallback 后端直接按公式计算。
// 两个后端在相同输入上的输出必须在 1e-6 相对误差内一致。
type Backend interface {
	Name() string

	// RSI Wilder 平滑的相对强弱指数。输出与输入等长，前 period 个值为 0。
	RSI(close []float64, period int) []float64

	// EMA 指数移动平均，平滑系数 2/(period+1)，SMA 种子。
	EMA(close []float64, period int) []float64

	// MACD 返回 macd 线、signal 线、histogram，三者与输入等长。
	// histogram 前 slow+signal-2 个值为 0，macd/signal 线提前一格就绪。
	MACD(close []float64, fast, slow, signal int) (macd, sig, hist []float64)
}

// Resolve 在进程启动时选定计算后端：优先 native (talib)，
// 自检失败时回退到内部实现。选定后进程生命周期内不再切换。
func Resolve(logger *zap.Logger) Backend {
	native := NewNativeBackend()
	if err := SelfCheck(native); err != nil {
		logger.Warn("Native TA backend failed self-check, falling back",
			zap.String("backend", native.Name()), zap.Error(err))
		return NewFallbackBackend()
	}
	logger.Info("TA backend resolved", zap.String("backend", native.Name()))
	return native
}

// SelfCheck 用一段确定性的序列探测后端是否可用且输出合理
func SelfCheck(b Backend) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrBackendUnavailable, b.Name(), r)
		}
	}()

	probe := make([]float64, 64)
	for i := range probe {
		probe[i] = 100 + 10*math.Sin(float64(i)/5)
	}

	rsi := b.RSI(probe, 14)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) || last < 0 || last > 100 {
		return fmt.Errorf("%w: %s RSI probe returned %v", ErrBackendUnavailable, b.Name(), last)
	}

	ema := b.EMA(probe, 21)
	if v := ema[len(ema)-1]; math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("%w: %s EMA probe returned %v", ErrBackendUnavailable, b.Name(), v)
	}

	_, _, hist := b.MACD(probe, 12, 26, 9)
	if v := hist[len(hist)-1]; math.IsNaN(v) {
		return fmt.Errorf("%w: %s MACD probe returned NaN", ErrBackendUnavailable, b.Name())
	}

	return nil
}
