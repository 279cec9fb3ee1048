package chip

import "github.com/shopspring/decimal"

// ToCents 金额转为最小货币单位（分），四舍五入
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromCents 最小货币单位转金额
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
