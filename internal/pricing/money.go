package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in won. Printing orders are quoted in whole won, so there
// is no fractional subunit.
type Money int64

func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// Times multiplies a unit amount by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// CheckedTimes is Times that reports false instead of wrapping around when the
// product does not fit in int64.
func (m Money) CheckedTimes(quantity int) (Money, bool) {
	if m == 0 || quantity == 0 {
		return 0, true
	}
	product := m * Money(quantity)
	if product/Money(quantity) != m || (quantity == -1 && m == math.MinInt64) {
		return 0, false
	}
	return product, true
}

// String formats the amount as "₩12,500".
func (m Money) String() string {
	amount := int64(m)
	neg := amount < 0
	if neg {
		amount = -amount
	}

	s := strconv.FormatInt(amount, 10)

	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 4)
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("₩")

	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}

	return b.String()
}

// roundMoney rounds half-up to the nearest won.
func roundMoney(d decimal.Decimal) Money {
	return Money(d.Round(0).IntPart())
}

func moneyPtr(m Money) *Money {
	return &m
}
