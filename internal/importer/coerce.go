package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CoerceFunc converts a raw cell into its canonical stored form. It is only
// called for present values; no-value markers bypass coercion entirely.
type CoerceFunc func(raw string) (string, error)

// Text is the identity coercion. A nil CoerceFunc behaves the same.
func Text(raw string) (string, error) {
	return raw, nil
}

// Int rejects values that do not parse as an integer. Use this where a bad
// quantity should fail the row instead of being silently replaced.
func Int(raw string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("not an integer: %q", raw)
	}
	return strconv.Itoa(n), nil
}

// IntOr substitutes fallback when the value does not parse as an integer.
// This preserves the lenient behavior of the legacy screens, where an
// unreadable quantity historically defaulted to 1. Whether a field is
// lenient or strict is a per-field choice in its mapping.
func IntOr(fallback int) CoerceFunc {
	return func(raw string) (string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return strconv.Itoa(fallback), nil
		}
		return strconv.Itoa(n), nil
	}
}

// Money parses a decimal amount, tolerating currency symbols and thousands
// separators, and canonicalizes it (e.g. "$1,299.99" -> "1299.99").
// Trailing zeros are dropped, so "$10.50" stores as "10.5".
func Money(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, sym := range []string{"$", "€", "£", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("not a monetary amount: %q", raw)
	}
	return d.String(), nil
}

// dateLayouts are accepted date spellings, tried in order.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "1/2/2006", "01/02/2006", "Jan 2, 2006", "20060102",
}

// Date canonicalizes a date to ISO form (2006-01-02).
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("not a date: %q", raw)
}
