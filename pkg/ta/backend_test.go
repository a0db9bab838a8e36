package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genCloses 生成一段确定性的带趋势波动序列，长度足以让 EMA 种子差异衰减
func genCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.05*float64(i) + 5*math.Sin(float64(i)/7) + 2*math.Sin(float64(i)/3)
	}
	return out
}

// requireClose 按相对误差 1e-6 比较（值接近零时退化为绝对误差）
func requireClose(t *testing.T, want, got float64) {
	t.Helper()
	tol := 1e-6 * math.Max(1, math.Abs(want))
	require.InDelta(t, want, got, tol)
}

// 两个后端在相同输入上必须给出一致的 RSI，从首个就绪下标起逐项比较
func TestBackendConformanceRSI(t *testing.T) {
	native := NewNativeBackend()
	fallback := NewFallbackBackend()

	for _, n := range []int{16, 40, 400} {
		closes := genCloses(n)
		a := native.RSI(closes, 14)
		b := fallback.RSI(closes, 14)
		require.Len(t, b, len(a))

		for i := 0; i < n; i++ {
			requireClose(t, a[i], b[i])
		}
	}
}

func TestBackendConformanceEMA(t *testing.T) {
	native := NewNativeBackend()
	fallback := NewFallbackBackend()

	closes := genCloses(400)
	for _, period := range []int{9, 21, 26} {
		a := native.EMA(closes, period)
		b := fallback.EMA(closes, period)
		require.Len(t, b, len(a))
		for i := 0; i < len(closes); i++ {
			requireClose(t, a[i], b[i])
		}
	}
}

// MACD 一致性必须覆盖全部就绪区间，包括刚够回看长度的短序列：
// 两个后端从首个就绪下标起就要一致，而不是渐近收敛。
func TestBackendConformanceMACD(t *testing.T) {
	native := NewNativeBackend()
	fallback := NewFallbackBackend()

	for _, n := range []int{34, 40, 64, 400} {
		closes := genCloses(n)
		am, as, ah := native.MACD(closes, 12, 26, 9)
		bm, bs, bh := fallback.MACD(closes, 12, 26, 9)
		require.Len(t, bm, len(am))

		for i := 0; i < n; i++ {
			requireClose(t, am[i], bm[i])
			requireClose(t, as[i], bs[i])
			requireClose(t, ah[i], bh[i])
		}
	}
}

// histogram 在首个就绪下标 (slow+signal-2) 上不允许出现符号分歧
func TestBackendConformanceMACDFirstReadyIndex(t *testing.T) {
	closes := genCloses(40)
	_, _, ah := NewNativeBackend().MACD(closes, 12, 26, 9)
	_, _, bh := NewFallbackBackend().MACD(closes, 12, 26, 9)

	first := 26 + 9 - 2
	requireClose(t, ah[first], bh[first])
	assert.Equal(t, math.Signbit(ah[first]), math.Signbit(bh[first]))
}

// RSI 永远落在 [0,100]
func TestRSIWithinBounds(t *testing.T) {
	closes := genCloses(200)
	for _, b := range []Backend{NewNativeBackend(), NewFallbackBackend()} {
		rsi := b.RSI(closes, 14)
		for i, v := range rsi {
			assert.GreaterOrEqual(t, v, 0.0, "%s index %d", b.Name(), i)
			assert.LessOrEqual(t, v, 100.0, "%s index %d", b.Name(), i)
		}
	}
}

// 完全无波动的序列 RSI 为 0，不允许出现 NaN
func TestRSIFlatSeries(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 42
	}
	for _, b := range []Backend{NewNativeBackend(), NewFallbackBackend()} {
		rsi := b.RSI(closes, 14)
		last := rsi[len(rsi)-1]
		require.False(t, math.IsNaN(last), b.Name())
		assert.Equal(t, 0.0, last, b.Name())
	}
}

// 输出未就绪区间填 0，就绪位置与 talib 对齐
func TestWarmupRegionZeroFilled(t *testing.T) {
	closes := genCloses(100)
	b := NewFallbackBackend()

	rsi := b.RSI(closes, 14)
	for i := 0; i < 14; i++ {
		assert.Zero(t, rsi[i])
	}
	assert.NotZero(t, rsi[14])

	ema := b.EMA(closes, 21)
	for i := 0; i < 20; i++ {
		assert.Zero(t, ema[i])
	}
	assert.NotZero(t, ema[20])

	_, _, hist := b.MACD(closes, 12, 26, 9)
	for i := 0; i < 26+9-2; i++ {
		assert.Zero(t, hist[i])
	}
}

func TestSelfCheckPassesForBothBackends(t *testing.T) {
	require.NoError(t, SelfCheck(NewNativeBackend()))
	require.NoError(t, SelfCheck(NewFallbackBackend()))
}
