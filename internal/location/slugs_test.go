package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportedSlugsCount(t *testing.T) {
	slugs := SupportedSlugs()
	assert.Len(t, slugs, 30)
	assert.Contains(t, slugs, DefaultSlug)
	assert.IsIncreasing(t, slugs)
}

func TestAliasValuesAreSupported(t *testing.T) {
	for alias, slug := range Aliases() {
		assert.Truef(t, IsSupported(slug), "alias %q maps to unsupported slug %q", alias, slug)
		assert.Equalf(t, Normalize(alias), alias, "alias %q is not normalized", alias)
	}
}

func TestResolveSlug(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"supported slug", "india", "india"},
		{"uppercase name", "India", "india"},
		{"iso code", "US", "usa"},
		{"multi word name", "United States", "usa"},
		{"extra whitespace", "  United   Kingdom ", "uk"},
		{"middle east folds to uae", "Iran", "uae"},
		{"iraq", "iraq", "uae"},
		{"israel iso", "IL", "uae"},
		{"already hyphenated", "saudi-arabia", "saudi-arabia"},
		{"sri lanka name", "Sri Lanka", "sri-lanka"},
		{"unknown", "Atlantis", DefaultSlug},
		{"empty", "", DefaultSlug},
		{"whitespace only", "   ", DefaultSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSlug(tt.raw))
		})
	}
}

func TestResolveSlugIsTotal(t *testing.T) {
	inputs := []string{"", "x", "日本", "lk\t", "South\nAfrica", " ", "korea, republic of"}
	for _, in := range inputs {
		assert.True(t, IsSupported(ResolveSlug(in)), "input %q", in)
	}
}

func TestLookupReportsMatch(t *testing.T) {
	slug, ok := Lookup("GB")
	assert.True(t, ok)
	assert.Equal(t, "uk", slug)

	slug, ok = Lookup("Wakanda")
	assert.False(t, ok)
	assert.Equal(t, DefaultSlug, slug)
}
