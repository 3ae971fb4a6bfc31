package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds an amount to two decimal places (paise precision).
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Sum adds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// LineTotal computes unit price times quantity rounded to paise.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Paise converts a rupee amount into integer paise for gateway payloads.
func Paise(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromPaise converts integer paise back into a rupee amount.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Shift(-2)
}

// FormatINR renders an amount with the Indian digit grouping, e.g. 12,34,567.89.
func FormatINR(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	if negative {
		fixed = fixed[1:]
	}
	parts := strings.SplitN(fixed, ".", 2)
	grouped := groupIndian(parts[0])
	out := "₹" + grouped + "." + parts[1]
	if negative {
		return "-" + out
	}
	return out
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}
