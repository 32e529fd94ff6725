// Package sanitize strips unsafe markup from user-supplied text before it is
// stored. Disallowed elements are removed rather than escaped; script and
// style bodies are dropped with their tags.
//
// The result is an HTML fragment meant to be rendered as markup. In text only
// &, < and > are escaped, so quotes survive as typed and cleaning an already
// clean value returns it unchanged.
package sanitize

import (
	"io"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// AllowedTags is the formatting allow-list applied to every text field.
var AllowedTags = []string{
	"br", "p", "h1", "h2", "h3", "h4", "h5", "h6",
	"strong", "em", "i", "b", "u",
	"ul", "ol", "li", "dl", "dt", "dd",
	"blockquote", "code", "pre",
	"a", "img",
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the shared sanitization policy. bluemonday policies are safe
// for concurrent use once built.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements(AllowedTags...)
		p.AllowAttrs("href", "title").OnElements("a")
		p.AllowAttrs("src", "alt", "title").OnElements("img")
		p.RequireParseableURLs(true)
		p.AllowRelativeURLs(true)
		p.AllowURLSchemes("http", "https", "mailto")
		policy = p
	})
	return policy
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// String cleans s.
func String(s string) string {
	if s == "" {
		return ""
	}
	return normalizeText(Policy().Sanitize(s))
}

// normalizeText re-escapes text nodes with textEscaper. Tags and attribute
// values are copied as the policy wrote them.
func normalizeText(s string) string {
	if !strings.Contains(s, "&#") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return s
		case html.TextToken:
			textEscaper.WriteString(&b, string(z.Text()))
		default:
			b.Write(z.Raw())
		}
	}
}

// Text cleans an optional field. nil means the field was omitted and stays
// nil so callers can tell "not provided" from "cleared".
func Text(s *string) *string {
	if s == nil {
		return nil
	}
	out := String(*s)
	return &out
}
