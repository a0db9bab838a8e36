package executor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFilters(step, minQty, minNotional string) Filters {
	return Filters{
		StepSize:    decimal.RequireFromString(step),
		MinQty:      decimal.RequireFromString(minQty),
		MinNotional: decimal.RequireFromString(minNotional),
	}
}

func TestBuyQuantityFullBalanceFloored(t *testing.T) {
	// 1000 USDT, 价格 0.5: 预留 0.1% 手续费 + 0.5% 安全边际后
	// 可用 994 USDT -> 1988 个，step=1 不需要再舍
	f := testFilters("1", "1", "10")
	qty, err := BuyQuantity(1000, 0.5, 0.001, 0.005, f)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(1988)), "got %s", qty)
}

func TestBuyQuantityRespectsStepSize(t *testing.T) {
	f := testFilters("0.1", "0.1", "10")
	qty, err := BuyQuantity(100, 0.73, 0.001, 0.005, f)
	require.NoError(t, err)

	// 数量必须是 step 的整数倍
	rem := qty.Mod(f.StepSize)
	assert.True(t, rem.IsZero(), "qty %s not aligned to step", qty)
}

// 名义价值绝不超过传入的可用余额
func TestBuyQuantityNotionalNeverExceedsBalance(t *testing.T) {
	f := testFilters("0.001", "0.001", "1")
	cases := []struct {
		balance, price float64
	}{
		{1000, 0.5},
		{53.17, 2.41},
		{10000, 613.2},
		{17.5, 0.0831},
	}
	for _, tc := range cases {
		qty, err := BuyQuantity(tc.balance, tc.price, 0.001, 0.005, f)
		require.NoError(t, err, "balance=%v price=%v", tc.balance, tc.price)

		notional := qty.Mul(decimal.NewFromFloat(tc.price))
		assert.True(t, notional.LessThanOrEqual(decimal.NewFromFloat(tc.balance)),
			"notional %s exceeds balance %v", notional, tc.balance)
	}
}

// 余额换算出的订单低于最小名义价值时拒绝提交
func TestBuyQuantityBelowMinNotional(t *testing.T) {
	f := testFilters("0.001", "0.001", "15")
	_, err := BuyQuantity(10, 1.0, 0.001, 0.005, f)
	require.ErrorIs(t, err, ErrBelowMinimumOrderSize)
}

func TestBuyQuantityBelowMinQty(t *testing.T) {
	f := testFilters("0.001", "1", "0")
	_, err := BuyQuantity(10, 100, 0.001, 0.005, f)
	require.ErrorIs(t, err, ErrBelowMinimumOrderSize)
}

func TestBuyQuantityZeroBalance(t *testing.T) {
	f := testFilters("0.001", "0.001", "1")
	_, err := BuyQuantity(0, 1.0, 0.001, 0.005, f)
	require.ErrorIs(t, err, ErrBelowMinimumOrderSize)
}

func TestBuyQuantityInvalidPrice(t *testing.T) {
	f := testFilters("0.001", "0.001", "1")
	_, err := BuyQuantity(100, 0, 0.001, 0.005, f)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBelowMinimumOrderSize)
}

func TestSellQuantityFloorsHeld(t *testing.T) {
	f := testFilters("0.01", "0.01", "1")
	qty, err := SellQuantity(1.23456, 10, f)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("1.23")), "got %s", qty)
}

func TestSellQuantityNothingHeld(t *testing.T) {
	f := testFilters("0.01", "0.01", "1")
	_, err := SellQuantity(0, 10, f)
	require.ErrorIs(t, err, ErrBelowMinimumOrderSize)
}

func TestSellQuantityBelowMinNotional(t *testing.T) {
	f := testFilters("0.01", "0.01", "100")
	_, err := SellQuantity(1, 10, f)
	require.ErrorIs(t, err, ErrBelowMinimumOrderSize)
}

func TestZeroStepSizeSkipsRounding(t *testing.T) {
	f := Filters{}
	qty, err := SellQuantity(1.23456, 10, f)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromFloat(1.23456)))
}
