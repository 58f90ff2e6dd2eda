package location

import "strings"

const listingSegment = "viewallads"

// NavigationTarget returns the listing path the client should move to
// for slug, or "" when the current path is already right.
//
// Navigation is due when the first path segment is a supported slug
// other than slug, or when the path is a country-less listing root
// ("/", "/viewallads", "/viewallads/"). A trailing slash on the current
// path is carried over to the target.
func NavigationTarget(currentPath, slug string) string {
	if !IsSupported(slug) {
		return ""
	}

	path := currentPath
	if path == "" {
		path = "/"
	}
	trailing := strings.HasSuffix(path, "/") && path != "/"

	target := "/" + slug + "/" + listingSegment
	if trailing {
		target += "/"
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" || trimmed == listingSegment {
		return target
	}

	first := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		first = trimmed[:i]
	}
	if IsSupported(first) && first != slug {
		return target
	}
	return ""
}
