package domain

import (
	"net/url"
	"strings"
)

// NormalizeTags lowercases, trims, de-duplicates and drops empty tags.
// Insertion order of first occurrences is kept.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// NormalizeURL prepends https:// when the input has no scheme, so a bare
// "example.com" becomes "https://example.com". Inputs that already carry
// a scheme are returned untouched, even if the scheme is one the fetcher
// will later reject.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// ValidURL reports whether raw parses as a URL with a host after
// normalization.
func ValidURL(raw string) bool {
	u, err := url.Parse(NormalizeURL(raw))
	return err == nil && u.Host != ""
}
