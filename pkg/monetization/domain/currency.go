package domain

import (
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// CurrencyNone marks a customer that has not been billed in any currency yet.
const CurrencyNone = "NONE"

const defaultExponent = 2

var builtinExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

var exponentOverrides atomic.Pointer[map[string]int32]

// SetCurrencyExponents replaces the configured exponent overrides.
func SetCurrencyExponents(overrides map[string]int32) {
	copied := make(map[string]int32, len(overrides))
	for code, exp := range overrides {
		copied[NormalizeCurrency(code)] = exp
	}
	exponentOverrides.Store(&copied)
}

// NormalizeCurrency upper-cases an ISO 4217 code. Blank input yields CurrencyNone.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return CurrencyNone
	}
	return code
}

// CurrencyIsSet reports whether code names a real currency.
func CurrencyIsSet(code string) bool {
	return NormalizeCurrency(code) != CurrencyNone
}

// SameCurrency compares two codes ignoring case and whitespace.
func SameCurrency(a, b string) bool {
	return NormalizeCurrency(a) == NormalizeCurrency(b)
}

// CurrencyExponent returns the number of minor-unit digits for code.
func CurrencyExponent(code string) int32 {
	code = NormalizeCurrency(code)
	if overrides := exponentOverrides.Load(); overrides != nil {
		if exp, ok := (*overrides)[code]; ok {
			return exp
		}
	}
	if exp, ok := builtinExponents[code]; ok {
		return exp
	}
	return defaultExponent
}

// ToDisplay converts an amount in the smallest unit into the standard
// denomination for presentation. The result must not be used for arithmetic.
func ToDisplay(amount int64, currency string) float64 {
	return decimal.New(amount, -CurrencyExponent(currency)).InexactFloat64()
}

// ToDisplayPtr is ToDisplay for optional amounts.
func ToDisplayPtr(amount *int64, currency string) *float64 {
	if amount == nil {
		return nil
	}
	value := ToDisplay(*amount, currency)
	return &value
}
