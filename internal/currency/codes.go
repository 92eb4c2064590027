// Package currency validates the ISO 4217 codes the reconciler accepts.
// Conversion is intentionally absent: intercompany pairs must be recorded in
// the same currency on both sides.
package currency

import "strings"

// supported lists the currency codes the two providers are configured to
// report in.
var supported = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"NZD": true,
	"SGD": true,
	"ZAR": true,
	"KES": true,
	"NGN": true,
}

// Normalize upper-cases and trims a raw currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code (after normalization) is a supported ISO code.
func Valid(code string) bool {
	return supported[Normalize(code)]
}
