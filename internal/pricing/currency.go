package pricing

import (
	"strings"

	"github.com/user/marketgeo/internal/models"
)

var (
	currencyLKR = models.CurrencyConfig{Code: "LKR", Symbol: "Rs", Name: "Sri Lankan Rupee", CountryCode: "LK"}
	currencyAUD = models.CurrencyConfig{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", CountryCode: "AU"}
	currencyINR = models.CurrencyConfig{Code: "INR", Symbol: "₹", Name: "Indian Rupee", CountryCode: "IN"}
	currencyUSD = models.CurrencyConfig{Code: "USD", Symbol: "$", Name: "US Dollar", CountryCode: "US"}
)

// currencyMatchers is checked in order; the first substring hit wins.
var currencyMatchers = []struct {
	needle   string
	currency models.CurrencyConfig
}{
	{"sri lanka", currencyLKR},
	{"australia", currencyAUD},
	{"india", currencyINR},
	{"united states", currencyUSD},
}

// DeriveCurrency picks the viewer's currency from a free-text location.
// Anything it does not recognize, including "", is priced in USD.
func DeriveCurrency(location string) models.CurrencyConfig {
	loc := strings.ToLower(location)
	for _, m := range currencyMatchers {
		if strings.Contains(loc, m.needle) {
			return m.currency
		}
	}
	return currencyUSD
}

// CurrencyForCountry returns the currency configuration for an ISO
// 3166-1 alpha-2 country code. Codes without a configured currency get
// USD, country code included.
func CurrencyForCountry(countryCode string) models.CurrencyConfig {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	for _, m := range currencyMatchers {
		if m.currency.CountryCode == code {
			return m.currency
		}
	}
	return currencyUSD
}

// DefaultCurrency returns the USD configuration.
func DefaultCurrency() models.CurrencyConfig {
	return currencyUSD
}
