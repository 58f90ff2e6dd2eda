package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"empty", "", "", false},
		{"region present", "en-AU,en;q=0.8", "australia", true},
		{"preference order", "fr-CH, de-DE;q=0.9", "germany", true},
		{"bare language", "en", "", false},
		{"unsupported region only", "pt-BR", "", false},
		{"garbage", ";;;", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SlugFromAcceptLanguage(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
