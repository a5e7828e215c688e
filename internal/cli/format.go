package cli

import (
	"strconv"
	"strings"

	"budgetflow/internal/core"
)

// FormatMoney renders an amount with thousands separators, e.g. 1,234.50.
func FormatMoney(m core.Money) string {
	s := m.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	whole = groupThousands(whole)
	if neg {
		whole = "-" + whole
	}
	return whole + "." + frac
}

// FormatCount adds comma separators to an integer.
func FormatCount(n int) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	return groupThousands(strconv.Itoa(n))
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	first := len(s) % 3
	if first > 0 {
		b.WriteString(s[:first])
	}
	for i := first; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatDefaultDay renders an optional day-of-month.
func FormatDefaultDay(day *int) string {
	if day == nil {
		return "-"
	}
	return strconv.Itoa(*day)
}
