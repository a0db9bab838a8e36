package executor

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBelowMinimumOrderSize 计算出的数量低于交易所最小限制，本周期降级为 hold
var ErrBelowMinimumOrderSize = errors.New("order size below exchange minimum")

// BuyQuantity 用全部可用计价币余额换算买入数量：
// 预留手续费和安全边际后按现价折算，向下取整到 step size。
// 结果的名义价值不会超过传入的可用余额。
func BuyQuantity(quoteFree, price, commissionRate, safetyMargin float64, f Filters) (decimal.Decimal, error) {
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("invalid price %.8f", price)
	}
	if quoteFree <= 0 {
		return decimal.Zero, fmt.Errorf("%w: quote balance is %.8f", ErrBelowMinimumOrderSize, quoteFree)
	}

	spendable := decimal.NewFromFloat(quoteFree).
		Mul(decimal.NewFromFloat(1 - commissionRate - safetyMargin))
	qty := floorToStep(spendable.Div(decimal.NewFromFloat(price)), f.StepSize)

	return checkMinimums(qty, price, f)
}

// SellQuantity 全仓退出：卖出持仓记录的全部数量，向下取整到 step size
func SellQuantity(held, price float64, f Filters) (decimal.Decimal, error) {
	if held <= 0 {
		return decimal.Zero, fmt.Errorf("%w: held quantity is %.8f", ErrBelowMinimumOrderSize, held)
	}
	qty := floorToStep(decimal.NewFromFloat(held), f.StepSize)
	return checkMinimums(qty, price, f)
}

func floorToStep(qty, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return qty
	}
	return qty.Div(step).Floor().Mul(step)
}

// checkMinimums 校验最小数量和最小名义价值。
// 不满足时绝不提交，返回 ErrBelowMinimumOrderSize。
func checkMinimums(qty decimal.Decimal, price float64, f Filters) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: rounded quantity is zero", ErrBelowMinimumOrderSize)
	}
	if f.MinQty.IsPositive() && qty.LessThan(f.MinQty) {
		return decimal.Zero, fmt.Errorf("%w: qty %s below min qty %s",
			ErrBelowMinimumOrderSize, qty, f.MinQty)
	}
	if f.MinNotional.IsPositive() {
		notional := qty.Mul(decimal.NewFromFloat(price))
		if notional.LessThan(f.MinNotional) {
			return decimal.Zero, fmt.Errorf("%w: notional %s below min notional %s",
				ErrBelowMinimumOrderSize, notional, f.MinNotional)
		}
	}
	return qty, nil
}
