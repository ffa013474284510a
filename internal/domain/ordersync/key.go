package ordersync

import "strings"

// OrderKey is a normalized upstream identifier (shipment id, order code,
// product code). Always construct it through NormalizeKey so that lookups,
// grouping and persisted unique columns agree on one spelling.
type OrderKey string

// persianDigits maps Persian (Extended Arabic-Indic) digits to their ASCII
// equivalents. The seller panel renders numeric identifiers with these
// digits in several payload fields.
var persianDigits = map[rune]rune{
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
}

// NormalizeKey converts raw into canonical form: Persian digits become
// ASCII, surrounding whitespace is trimmed, and a trailing ".0" left over
// from upstream float-to-string coercion is dropped. Empty input yields the
// empty key. The function is idempotent.
func NormalizeKey(raw string) OrderKey {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.Map(func(r rune) rune {
		if ascii, ok := persianDigits[r]; ok {
			return ascii
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, ".0")
	return OrderKey(s)
}

// String returns the key as a plain string
func (k OrderKey) String() string {
	return string(k)
}

// IsEmpty reports whether the key carries no identifier
func (k OrderKey) IsEmpty() bool {
	return k == ""
}
