// ===========================================
// Package location - Country Detection & Resolution
// ===========================================
// Turns "we don't know where this visitor is" into one of the
// supported country slugs. The pieces:
//
//   - ResolveSlug: raw country token -> supported slug (pure, total)
//   - Detector:    three IP-geolocation lookups, all settled, first
//                  usable result by provider priority wins
//   - Resolver:    cache freshness, in-flight guard, default fallback
//                  and the navigation instruction for the front-end
// ===========================================

package location

import (
	"sort"
	"strings"
)

// DefaultSlug is used whenever a token cannot be resolved or detection
// produced nothing usable.
const DefaultSlug = "sri-lanka"

// supportedSlugs is the fixed set of countries the marketplace serves.
var supportedSlugs = map[string]struct{}{
	"sri-lanka":    {},
	"india":        {},
	"pakistan":     {},
	"bangladesh":   {},
	"nepal":        {},
	"maldives":     {},
	"uae":          {},
	"saudi-arabia": {},
	"qatar":        {},
	"kuwait":       {},
	"oman":         {},
	"bahrain":      {},
	"usa":          {},
	"canada":       {},
	"uk":           {},
	"australia":    {},
	"new-zealand":  {},
	"germany":      {},
	"france":       {},
	"italy":        {},
	"spain":        {},
	"netherlands":  {},
	"japan":        {},
	"south-korea":  {},
	"singapore":    {},
	"malaysia":     {},
	"thailand":     {},
	"china":        {},
	"south-africa": {},
	"russia":       {},
}

// countryAliases maps normalized tokens (ISO-2 codes and hyphenated
// country names) onto supported slugs. Many-to-one: countries without
// their own market fold into the nearest one.
var countryAliases = map[string]string{
	// South Asia
	"lk":     "sri-lanka",
	"ceylon": "sri-lanka",
	"in":     "india",
	"bharat": "india",
	"pk":     "pakistan",
	"bd":     "bangladesh",
	"np":     "nepal",
	"mv":     "maldives",

	// Gulf and the wider Middle East
	"ae":                      "uae",
	"united-arab-emirates":    "uae",
	"emirates":                "uae",
	"dubai":                   "uae",
	"iran":                    "uae",
	"ir":                      "uae",
	"iraq":                    "uae",
	"iq":                      "uae",
	"israel":                  "uae",
	"il":                      "uae",
	"jordan":                  "uae",
	"jo":                      "uae",
	"lebanon":                 "uae",
	"lb":                      "uae",
	"syria":                   "uae",
	"sy":                      "uae",
	"yemen":                   "uae",
	"ye":                      "uae",
	"egypt":                   "uae",
	"eg":                      "uae",
	"sa":                      "saudi-arabia",
	"ksa":                     "saudi-arabia",
	"kingdom-of-saudi-arabia": "saudi-arabia",
	"qa":                      "qatar",
	"kw":                      "kuwait",
	"om":                      "oman",
	"bh":                      "bahrain",

	// Americas
	"us":                       "usa",
	"united-states":            "usa",
	"united-states-of-america": "usa",
	"america":                  "usa",
	"ca":                       "canada",

	// Europe
	"gb":                 "uk",
	"united-kingdom":     "uk",
	"great-britain":      "uk",
	"england":            "uk",
	"scotland":           "uk",
	"wales":              "uk",
	"northern-ireland":   "uk",
	"de":                 "germany",
	"deutschland":        "germany",
	"fr":                 "france",
	"it":                 "italy",
	"es":                 "spain",
	"nl":                 "netherlands",
	"the-netherlands":    "netherlands",
	"holland":            "netherlands",
	"ru":                 "russia",
	"russian-federation": "russia",

	// Asia-Pacific
	"au":                         "australia",
	"nz":                         "new-zealand",
	"jp":                         "japan",
	"kr":                         "south-korea",
	"korea":                      "south-korea",
	"republic-of-korea":          "south-korea",
	"korea,-republic-of":         "south-korea",
	"sg":                         "singapore",
	"my":                         "malaysia",
	"th":                         "thailand",
	"cn":                         "china",
	"people's-republic-of-china": "china",

	// Africa
	"za": "south-africa",
}

// Normalize lowercases a raw token, trims it, and joins internal
// whitespace runs with single hyphens.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "-")
}

// IsSupported reports whether slug is one of the supported slugs.
func IsSupported(slug string) bool {
	_, ok := supportedSlugs[slug]
	return ok
}

// Lookup resolves a raw token and reports whether it matched a slug or
// an alias (false means the default was used).
func Lookup(raw string) (string, bool) {
	token := Normalize(raw)
	if IsSupported(token) {
		return token, true
	}
	if slug, ok := countryAliases[token]; ok {
		return slug, true
	}
	return DefaultSlug, false
}

// ResolveSlug maps a free-text country name or ISO-2 code onto a
// supported slug. Unknown input yields DefaultSlug.
func ResolveSlug(raw string) string {
	slug, _ := Lookup(raw)
	return slug
}

// SupportedSlugs returns the supported slugs in alphabetical order.
func SupportedSlugs() []string {
	out := make([]string, 0, len(supportedSlugs))
	for slug := range supportedSlugs {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(countryAliases))
	for k, v := range countryAliases {
		out[k] = v
	}
	return out
}
