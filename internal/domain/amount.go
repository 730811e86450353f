package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Amount is a numeric figure (dollars, percentages, unit thresholds) that
// decodes tolerantly. Numbers, numeric strings, null and garbage all resolve
// to a finite value; anything unparseable becomes 0.
type Amount float64

// numericPrefix mirrors a lenient leading-number parse: "12.5abc" is 12.5,
// "$12" is not a number.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Float returns the value as float64 with NaN and ±Inf mapped to 0.
func (a Amount) Float() float64 {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseAmount converts an arbitrary decoded value into an Amount.
func ParseAmount(v any) Amount {
	switch n := v.(type) {
	case nil:
		return 0
	case Amount:
		return Amount(n.Float())
	case float64:
		return Amount(Amount(n).Float())
	case float32:
		return Amount(Amount(n).Float())
	case int:
		return Amount(n)
	case int32:
		return Amount(n)
	case int64:
		return Amount(n)
	case string:
		return parseAmountString(n)
	default:
		return 0
	}
}

func parseAmountString(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Amount(Amount(f).Float())
	}
	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return Amount(Amount(f).Float())
}

// UnmarshalJSON never fails: malformed input decodes to 0.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "" || raw == "null":
		*a = 0
	case strings.HasPrefix(raw, `"`):
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			*a = 0
			return nil
		}
		*a = parseAmountString(unquoted)
	default:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			*a = 0
			return nil
		}
		*a = Amount(Amount(f).Float())
	}
	return nil
}

// UnmarshalYAML applies the same lenient rules to defaults files.
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		*a = 0
		return nil
	}
	*a = ParseAmount(v)
	return nil
}

// MarshalJSON writes the sanitized value so NaN never reaches the encoder.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(a.Float(), 'f', -1, 64)), nil
}

// AmountPtr is a convenience for optional fields.
func AmountPtr(v float64) *Amount {
	a := Amount(v)
	return &a
}
