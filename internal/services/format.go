package services

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatINR renders an amount as rupees with two decimals, e.g. ₹1,234.56.
func FormatINR(amount decimal.Decimal) string {
	s := formatNumber(amount)
	if strings.HasPrefix(s, "-") {
		return "-₹" + s[1:]
	}
	return "₹" + s
}

// FormatPct renders a percentage with two decimals, e.g. 5.71%.
func FormatPct(pct decimal.Decimal) string {
	return formatNumber(pct) + "%"
}

// FormatSignedPct is FormatPct with an explicit plus sign for gains.
func FormatSignedPct(pct decimal.Decimal) string {
	if pct.IsPositive() {
		return "+" + FormatPct(pct)
	}
	return FormatPct(pct)
}

func formatNumber(n decimal.Decimal) string {
	f, _ := n.Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}
