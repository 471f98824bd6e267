package utils

import "github.com/shopspring/decimal"

// MoneyPrecision is the number of decimal places amounts are stored with.
const MoneyPrecision int32 = 2

var decimalOneHundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}

func MulMoney(quantity decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	return RoundMoney(quantity.Mul(price))
}

// SumMoney adds the amounts in order.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// CalculateDiscountAmount returns subTotal * percent / 100 rounded to cents.
// A zero percent yields zero; negative subtotals yield negative discounts.
func CalculateDiscountAmount(subTotal decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return decimal.Zero
	}
	return RoundMoney(subTotal.Mul(percent).Div(decimalOneHundred))
}
