package extract

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clean collapses runs of whitespace.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text returns the cleaned text of the first match of selector.
func Text(s *goquery.Selection, selector string) string {
	return Clean(s.Find(selector).First().Text())
}

// RequiredText is Text that fails when the element is missing or empty.
func RequiredText(s *goquery.Selection, selector, field string) (string, error) {
	t := Text(s, selector)
	if t == "" {
		return "", Missing(field)
	}
	return t, nil
}

// OptionalText returns nil when the element is missing or empty.
func OptionalText(s *goquery.Selection, selector string) *string {
	t := Text(s, selector)
	if t == "" {
		return nil
	}
	return &t
}

func Attr(s *goquery.Selection, selector, attr string) string {
	v, _ := s.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// Resolve turns href into an absolute URL against base.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// StripQuery drops query string and fragment.
func StripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// JSONLD returns every JSON-LD object on the page, flattening arrays and
// @graph containers. Malformed blocks are skipped.
func JSONLD(doc *goquery.Document) []map[string]any {
	var out []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		out = append(out, flattenLD(v)...)
	})
	return out
}

func flattenLD(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, flattenLD(item)...)
		}
		return out
	case map[string]any:
		out := []map[string]any{t}
		if graph, ok := t["@graph"]; ok {
			out = append(out, flattenLD(graph)...)
		}
		return out
	}
	return nil
}

// FindLD returns the first JSON-LD object whose @type is typ.
func FindLD(doc *goquery.Document, typ string) (map[string]any, error) {
	for _, obj := range JSONLD(doc) {
		switch t := obj["@type"].(type) {
		case string:
			if t == typ {
				return obj, nil
			}
		case []any:
			for _, x := range t {
				if s, ok := x.(string); ok && s == typ {
					return obj, nil
				}
			}
		}
	}
	return nil, Missing("json-ld " + typ)
}

// EmbeddedJSON decodes the text of the script matched by selector into v.
func EmbeddedJSON(doc *goquery.Document, selector string, v any) error {
	raw := strings.TrimSpace(doc.Find(selector).First().Text())
	if raw == "" {
		return Missing(selector)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("malformed embedded json in %s: %w", selector, err)
	}
	return nil
}

// NextData decodes the Next.js __NEXT_DATA__ payload.
func NextData(doc *goquery.Document, v any) error {
	return EmbeddedJSON(doc, "script#__NEXT_DATA__", v)
}

// String reads a string-ish JSON value.
func String(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%g", t)
	case json.Number:
		return t.String()
	}
	return ""
}

// Number reads a numeric JSON value that may also be encoded as a string.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := ParsePrice(t)
		return f, err == nil
	}
	return 0, false
}
