package engine

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatDollars renders a whole-dollar figure with thousands separators,
// e.g. 12345.6 -> "$12,346" and -50 -> "-$50".
func FormatDollars(v float64) string {
	p := message.NewPrinter(language.English)
	n := int64(roundHalfUp(v))
	if n < 0 {
		return p.Sprintf("-$%d", -n)
	}
	return p.Sprintf("$%d", n)
}

// FormatCount renders a goal or pace figure without trailing zeros.
func FormatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatDelta renders a deal-count delta with one decimal.
func FormatDelta(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatSignedDelta rounds to one decimal, drops a trailing ".0" and
// prefixes positive values with "+", e.g. 2.04 -> "+2" and -1.46 -> "-1.5".
func FormatSignedDelta(v float64) string {
	r := roundHalfUp(v*10) / 10
	s := FormatCount(r)
	if r > 0 {
		return "+" + s
	}
	return s
}
