package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceCacheLatest(t *testing.T) {
	in := make(chan Ticker, 2)
	pc := NewPriceCache(in, time.Minute)

	in <- Ticker{Symbol: "XRPUSDT", Price: 0.52, Timestamp: time.Now().UnixMilli()}
	in <- Ticker{Symbol: "XRPUSDT", Price: 0.53, Timestamp: time.Now().UnixMilli()}
	close(in)
	pc.Start() // 通道已关闭，消费完即返回

	price, ok := pc.Latest("XRPUSDT")
	require.True(t, ok)
	assert.Equal(t, 0.53, price)

	_, ok = pc.Latest("BNBUSDT")
	assert.False(t, ok)
}

// 过期价格不参与定价，调用方回退到 REST 查询
func TestPriceCacheStaleRejected(t *testing.T) {
	in := make(chan Ticker, 1)
	pc := NewPriceCache(in, time.Second)

	in <- Ticker{
		Symbol:    "XRPUSDT",
		Price:     0.52,
		Timestamp: time.Now().Add(-5 * time.Second).UnixMilli(),
	}
	close(in)
	pc.Start()

	_, ok := pc.Latest("XRPUSDT")
	assert.False(t, ok)
}
