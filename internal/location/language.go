package location

import "golang.org/x/text/language"

// SlugFromAcceptLanguage derives a supported slug from the region subtags
// of an Accept-Language header, in preference order. Only regions that
// resolve to a supported slug through ResolveSlug's table count; a
// header that yields none returns false.
func SlugFromAcceptLanguage(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return "", false
	}
	for _, tag := range tags {
		// Bare language tags ("en") only yield a guessed region.
		region, confidence := tag.Region()
		if confidence != language.Exact {
			continue
		}
		if slug, ok := Lookup(region.String()); ok {
			return slug, true
		}
	}
	return "", false
}
