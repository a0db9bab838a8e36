package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kline(symbol string, start time.Time, close float64) KLine {
	return KLine{
		Symbol:    symbol,
		Interval:  "1m",
		Close:     close,
		StartTime: start,
		EndTime:   start.Add(time.Minute),
	}
}

func TestPriceSeriesAppendRejectsOutOfOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ps := NewPriceSeries("XRPUSDT", "1m", 10)

	require.NoError(t, ps.Append(kline("XRPUSDT", base, 0.5)))
	require.NoError(t, ps.Append(kline("XRPUSDT", base.Add(time.Minute), 0.51)))

	// 重复时间戳和回退时间戳都拒绝
	assert.Error(t, ps.Append(kline("XRPUSDT", base.Add(time.Minute), 0.52)))
	assert.Error(t, ps.Append(kline("XRPUSDT", base, 0.52)))
	assert.Equal(t, 2, ps.Len())
}

func TestPriceSeriesSlidingWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ps := NewPriceSeries("XRPUSDT", "1m", 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, ps.Append(kline("XRPUSDT", base.Add(time.Duration(i)*time.Minute), float64(i))))
	}

	assert.Equal(t, 3, ps.Len())
	assert.Equal(t, []float64{2, 3, 4}, ps.Closes())

	last, ok := ps.Last()
	require.True(t, ok)
	assert.Equal(t, 4.0, last.Close)
}

func TestPriceSeriesReplace(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ps := NewPriceSeries("XRPUSDT", "1m", 10)
	require.NoError(t, ps.Append(kline("XRPUSDT", base, 0.5)))

	fresh := []KLine{
		kline("XRPUSDT", base.Add(10*time.Minute), 0.6),
		kline("XRPUSDT", base.Add(11*time.Minute), 0.61),
	}
	require.NoError(t, ps.Replace(fresh))
	assert.Equal(t, []float64{0.6, 0.61}, ps.Closes())

	// 乱序批次整体拒绝
	bad := []KLine{
		kline("XRPUSDT", base.Add(2*time.Minute), 0.6),
		kline("XRPUSDT", base.Add(time.Minute), 0.61),
	}
	assert.Error(t, ps.Replace(bad))
}

func TestPriceSeriesEmpty(t *testing.T) {
	ps := NewPriceSeries("XRPUSDT", "1m", 10)
	_, ok := ps.Last()
	assert.False(t, ok)
	assert.Empty(t, ps.Closes())
}

func TestOrderResultFilled(t *testing.T) {
	assert.True(t, OrderResult{Status: "FILLED", FilledQuantity: 1}.Filled())
	assert.False(t, OrderResult{Status: "FILLED"}.Filled())
	assert.False(t, OrderResult{Status: "NEW", FilledQuantity: 1}.Filled())
	assert.False(t, OrderResult{Status: "EXPIRED"}.Filled())
}

func TestPositionIsLong(t *testing.T) {
	assert.True(t, Position{Direction: DirLong, Quantity: 1}.IsLong())
	assert.False(t, Position{Direction: DirLong}.IsLong())
	assert.False(t, Position{Direction: DirFlat, Quantity: 1}.IsLong())
	assert.False(t, Position{}.IsLong())
}
