package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProfileFillsDefaults(t *testing.T) {
	p, err := validateProfile("xrp", Profile{
		Symbol: "xrpusdt",
		UseRSI: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "XRPUSDT", p.Symbol)
	assert.Equal(t, "USDT", p.QuoteAsset)
	assert.Equal(t, "XRP", p.BaseAsset)
	assert.Equal(t, "1m", p.Timeframe)
	assert.Equal(t, time.Minute, p.PollInterval)
	assert.Equal(t, 14, p.RSIPeriod)
	assert.Equal(t, 30.0, p.RSIOversold)
	assert.Equal(t, 70.0, p.RSIOverbought)
	assert.Equal(t, 0.001, p.CommissionRate)
	assert.Equal(t, 0.005, p.SafetyMargin)
}

func TestValidateProfileDerivesBaseAsset(t *testing.T) {
	p, err := validateProfile("bnb", Profile{Symbol: "BNBUSDT", UseMACD: true})
	require.NoError(t, err)
	assert.Equal(t, "BNB", p.BaseAsset)

	p, err = validateProfile("btc", Profile{Symbol: "BTCBUSD", QuoteAsset: "BUSD", UseMACD: true})
	require.NoError(t, err)
	assert.Equal(t, "BTC", p.BaseAsset)
}

func TestValidateProfileRejectsNoIndicators(t *testing.T) {
	_, err := validateProfile("dead", Profile{Symbol: "XRPUSDT"})
	require.ErrorIs(t, err, ErrNoIndicatorsEnabled)
}

func TestValidateProfileRejectsBadThresholds(t *testing.T) {
	cases := []Profile{
		{Symbol: "XRPUSDT", UseRSI: true, RSIOversold: 80, RSIOverbought: 70},
		{Symbol: "XRPUSDT", UseRSI: true, RSIOverbought: 120},
		{Symbol: "XRPUSDT", UseMACD: true, MACDFastPeriod: 26, MACDSlowPeriod: 12},
		{Symbol: "XRPUSDT", UseEMA: true, EMAFastPeriod: 21, EMASlowPeriod: 9},
		{Symbol: "XRPUSDT", UseRSI: true, CommissionRate: 1.5},
		{Symbol: "XRPUSDT", UseRSI: true, UseStopLoss: true},
		{Symbol: ""},
	}
	for _, p := range cases {
		_, err := validateProfile("bad", p)
		assert.Error(t, err, "%+v", p)
	}
}

// 同一 Symbol 只允许一个 Profile：否则两个调度任务会并发驱动同一交易对
func TestValidateConfigRejectsDuplicateSymbols(t *testing.T) {
	cfg := &Config{Profiles: map[string]Profile{
		"xrp-rsi":  {Symbol: "XRPUSDT", UseRSI: true},
		"xrp-macd": {Symbol: "xrpusdt", UseMACD: true},
	}}
	err := validateConfig(cfg)
	require.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), "XRPUSDT")
}

func TestValidateConfigAcceptsDistinctSymbols(t *testing.T) {
	cfg := &Config{Profiles: map[string]Profile{
		"xrp": {Symbol: "XRPUSDT", UseRSI: true},
		"bnb": {Symbol: "BNBUSDT", UseRSI: true},
	}}
	require.NoError(t, validateConfig(cfg))
}

func TestValidateConfigRejectsEmpty(t *testing.T) {
	require.ErrorIs(t, validateConfig(&Config{}), ErrInvalidProfile)
}

func TestValidateProfileRejectsUnderivableBaseAsset(t *testing.T) {
	_, err := validateProfile("odd", Profile{Symbol: "BTCEUR", UseRSI: true})
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"5m", 5 * time.Minute},
		{"30s", 30 * time.Second},
		{"1h", time.Hour},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseIntervalDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "m", "1w", "0m", "-5m", "xxm"} {
		_, err := ParseIntervalDuration(bad)
		assert.Error(t, err, bad)
	}
}
