package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// FormatThousands renders an amount in the "K" notation of the repair price
// list: 20000 -> "20K", 3700 -> "3,7K", 950 -> "950".
func FormatThousands(amount int64) string {
	d := decimal.NewFromInt(amount)
	if d.Abs().LessThan(thousand) {
		return d.String()
	}
	k := d.Div(thousand).Round(1)
	return strings.Replace(k.String(), ".", ",", 1) + "K"
}

// FormatAmount groups digits by thousands: 12500 -> "12 500".
func FormatAmount(amount int64) string {
	s := decimal.NewFromInt(amount).Abs().String()
	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 && !(amount < 0 && b.Len() == 1) {
			b.WriteString(" ")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
