package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DEFAULT_CURRENCY_PRECISION is the minor unit scale used for unknown currencies
const DEFAULT_CURRENCY_PRECISION int32 = 2

// CURRENCY_PRECISION maps lower case ISO 4217 codes whose minor unit is not 2 digits
var CURRENCY_PRECISION = map[string]int32{
	"bif": 0,
	"clp": 0,
	"djf": 0,
	"gnf": 0,
	"isk": 0,
	"jpy": 0,
	"kmf": 0,
	"krw": 0,
	"pyg": 0,
	"rwf": 0,
	"ugx": 0,
	"vnd": 0,
	"vuv": 0,
	"xaf": 0,
	"xof": 0,
	"xpf": 0,
	"bhd": 3,
	"iqd": 3,
	"jod": 3,
	"kwd": 3,
	"lyd": 3,
	"omr": 3,
	"tnd": 3,
}

// GetCurrencyPrecision returns the number of minor unit digits of a currency
func GetCurrencyPrecision(code string) int32 {
	if p, ok := CURRENCY_PRECISION[strings.ToLower(code)]; ok {
		return p
	}
	return DEFAULT_CURRENCY_PRECISION
}

// RoundToCurrencyPrecision rounds half-up to the currency minor unit
func RoundToCurrencyPrecision(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(GetCurrencyPrecision(code))
}

// HasCurrencyScale reports whether amount carries no digits beyond the currency minor unit
func HasCurrencyScale(amount decimal.Decimal, code string) bool {
	return amount.Equal(amount.Truncate(GetCurrencyPrecision(code)))
}
