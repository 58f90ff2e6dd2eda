// ===========================================
// Package pricing - Page Cost Calculation
// ===========================================
// Prices a listing page from its page type and gallery size in the
// viewer's currency. Everything here is pure: reference data goes in,
// a CostBreakdown comes out, no I/O.
// ===========================================

package pricing

import (
	"strings"

	"github.com/user/marketgeo/internal/models"
)

// DefaultGateway is the gateway reported when a price map is empty.
const DefaultGateway = "stripe"

// countryCurrency maps ISO-2 country codes to the key the pricing
// backend may use instead of the country code. "LK" keeps its own code;
// the backend never keys Sri Lanka by "LKR".
var countryCurrency = map[string]string{
	"US": "USD",
	"LK": "LK",
	"AU": "AUD",
	"IN": "INR",
	"GB": "GBP",
	"AE": "AED",
	"CA": "CAD",
	"NZ": "NZD",
	"PK": "PKR",
	"BD": "BDT",
	"NP": "NPR",
	"MV": "MVR",
	"SA": "SAR",
	"QA": "QAR",
	"KW": "KWD",
	"OM": "OMR",
	"BH": "BHD",
	"DE": "EUR",
	"FR": "EUR",
	"IT": "EUR",
	"ES": "EUR",
	"NL": "EUR",
	"JP": "JPY",
	"KR": "KRW",
	"SG": "SGD",
	"MY": "MYR",
	"TH": "THB",
	"CN": "CNY",
	"ZA": "ZAR",
	"RU": "RUB",
}

// CurrencyKey returns the currency key the backend may use for countryCode.
func CurrencyKey(countryCode string) (string, bool) {
	key, ok := countryCurrency[strings.ToUpper(strings.TrimSpace(countryCode))]
	return key, ok
}

// ResolvePriceEntry picks the entry of prices that applies to
// countryCode. Lookup order:
//
//  1. the country code itself
//  2. the country's currency code
//  3. "LK", then "US", then "USD"
//  4. the first entry of the table
//  5. a zero price on DefaultGateway
func ResolvePriceEntry(prices models.PriceTable, countryCode string) models.PriceEntry {
	return resolvePriceEntry(prices, countryCode, DefaultGateway)
}

func resolvePriceEntry(prices models.PriceTable, countryCode, fallbackGateway string) models.PriceEntry {
	code := strings.ToUpper(strings.TrimSpace(countryCode))

	candidates := make([]string, 0, 5)
	if code != "" {
		candidates = append(candidates, code)
	}
	if key, ok := countryCurrency[code]; ok {
		candidates = append(candidates, key)
	}
	candidates = append(candidates, "LK", "US", "USD")

	for _, key := range candidates {
		if entry, ok := prices.Get(key); ok {
			return entry
		}
	}
	if _, entry, ok := prices.First(); ok {
		return entry
	}
	return models.PriceEntry{Price: 0, Gateway: fallbackGateway}
}
