package extractor

import (
	"bytes"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tote-app/tote/internal/domain"
)

const (
	// MaxTitleLen caps extracted titles, in characters.
	MaxTitleLen = 300
	// MaxDescriptionLen caps extracted descriptions, in characters.
	MaxDescriptionLen = 500
)

// Extract parses a fetched HTML body into the canonical metadata record.
// finalURL is the post-redirect URL; relative asset URLs resolve against
// it. Malformed HTML is tolerated: selection degrades field by field and
// the title falls back to the hostname. The only hard failure is a page
// where not even a hostname title can be derived.
func Extract(body []byte, finalURL *url.URL) (domain.Metadata, error) {
	var meta domain.Metadata

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		doc = nil
	}

	if doc != nil {
		meta.Title = firstOf(
			metaContent(doc, "og:title"),
			metaContent(doc, "twitter:title"),
			collapse(doc.Find("title").First().Text()),
		)
		meta.Description = truncate(firstOf(
			metaContent(doc, "og:description"),
			metaContent(doc, "twitter:description"),
			namedMetaContent(doc, "description"),
		), MaxDescriptionLen)
		meta.IconURL = iconURL(doc, finalURL)
		meta.ImageURL = resolveURL(finalURL, firstOf(
			metaContent(doc, "og:image"),
			metaContent(doc, "twitter:image"),
		))
	}

	if meta.Title == "" {
		if finalURL == nil || finalURL.Hostname() == "" {
			return meta, domain.ParseErr(errors.New("no title and no hostname to fall back on"))
		}
		meta.Title = finalURL.Hostname()
	}
	meta.Title = truncate(meta.Title, MaxTitleLen)

	return meta, nil
}

// metaContent reads a meta tag's content by property or name attribute.
// Open Graph uses property=, Twitter cards commonly use name=.
func metaContent(doc *goquery.Document, key string) string {
	sel := `meta[property="` + key + `"], meta[name="` + key + `"]`
	content, _ := doc.Find(sel).First().Attr("content")
	return collapse(content)
}

func namedMetaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return collapse(content)
}

// iconURL selects the page icon: the icon/shortcut-icon link with the
// largest declared sizes, then apple-touch-icon, then /favicon.ico on
// the final host.
func iconURL(doc *goquery.Document, base *url.URL) string {
	var bestHref string
	bestArea := -1

	doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		sizes, _ := s.Attr("sizes")
		if area := sizesArea(sizes); area > bestArea {
			bestArea = area
			bestHref = href
		}
	})

	if bestHref == "" {
		if href, ok := doc.Find(`link[rel="apple-touch-icon"]`).First().Attr("href"); ok {
			bestHref = href
		}
	}

	if resolved := resolveURL(base, bestHref); resolved != "" {
		return resolved
	}

	if base != nil && base.Hostname() != "" {
		return base.Scheme + "://" + base.Host + "/favicon.ico"
	}
	return ""
}

// sizesArea ranks a link's sizes attribute. "any" beats every pixel
// declaration; multiple declarations count their largest; absent sizes
// rank lowest but still above nothing.
func sizesArea(sizes string) int {
	sizes = strings.ToLower(strings.TrimSpace(sizes))
	if sizes == "" {
		return 0
	}
	if strings.Contains(sizes, "any") {
		return 1 << 30
	}

	best := 0
	for _, decl := range strings.Fields(sizes) {
		w, h, ok := strings.Cut(decl, "x")
		if !ok {
			continue
		}
		wi, werr := strconv.Atoi(w)
		hi, herr := strconv.Atoi(h)
		if werr != nil || herr != nil {
			continue
		}
		if area := wi * hi; area > best {
			best = area
		}
	}
	return best
}

// resolveURL resolves href against base and rejects anything that is not
// http or https after resolution.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	if ref.Hostname() == "" {
		return ""
	}
	return ref.String()
}

// collapse trims and collapses internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at n characters, not bytes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func firstOf(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
