package types

import (
	"github.com/shopspring/decimal"
)

// Money is a KES amount. It encodes as a bare JSON number and decodes numbers or numeric strings.
type Money struct {
	decimal.Decimal
}

func NewMoney(value decimal.Decimal) Money {
	return Money{Decimal: value}
}

// MoneyFromInt builds a whole-shilling amount.
func MoneyFromInt(value int64) Money {
	return Money{Decimal: decimal.NewFromInt(value)}
}

// MoneyFromFloat is used for values read from loosely typed input.
func MoneyFromFloat(value float64) Money {
	return Money{Decimal: decimal.NewFromFloat(value)}
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

// Equal compares two amounts by value.
func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}
