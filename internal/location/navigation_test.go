package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigationTarget(t *testing.T) {
	tests := []struct {
		name string
		path string
		slug string
		want string
	}{
		{"root", "/", "india", "/india/viewallads"},
		{"empty path", "", "india", "/india/viewallads"},
		{"listing root", "/viewallads", "uk", "/uk/viewallads"},
		{"listing root trailing slash", "/viewallads/", "uk", "/uk/viewallads/"},
		{"other country", "/india/viewallads", "sri-lanka", "/sri-lanka/viewallads"},
		{"other country trailing slash", "/india/viewallads/", "sri-lanka", "/sri-lanka/viewallads/"},
		{"other country deep path", "/india/ad/123", "usa", "/usa/viewallads"},
		{"same country", "/india/viewallads", "india", ""},
		{"same country deep path", "/india/ad/123", "india", ""},
		{"non country section", "/about", "india", ""},
		{"unsupported slug", "/", "atlantis", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NavigationTarget(tt.path, tt.slug))
		})
	}
}
