package middleware

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/toyz/fastpress/pkg/fastpress"
)

var traversal = regexp.MustCompile(`(?i)(\.\./|%2e%2e%2f|\.\.\\|%2e%2e%5c)`)

// Sanitizer strips NUL bytes and path traversal sequences from the request
// path, and drops query entries that try to traverse.
type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

func (s *Sanitizer) Handle(ctx *fastpress.Context) error {
	ctx.SetPath(SanitizePath(ctx.Path()))
	ctx.SetQuery(SanitizeQuery(ctx.Query()))
	return ctx.Next()
}

// SanitizePath removes NUL bytes, decodes the path and removes traversal
// sequences until none are left.
func SanitizePath(path string) string {
	clean := strings.ReplaceAll(path, "\x00", "")
	if decoded, err := url.PathUnescape(clean); err == nil {
		clean = decoded
	}
	for traversal.MatchString(clean) {
		clean = traversal.ReplaceAllString(clean, "")
	}
	return clean
}

// SanitizeQuery returns a copy of q without NUL bytes. Keys whose decoded
// name or any decoded value contains a traversal sequence are dropped.
func SanitizeQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for key, values := range q {
		k := decode(strings.ReplaceAll(key, "\x00", ""))
		if traversal.MatchString(k) {
			continue
		}
		cleaned := make([]string, 0, len(values))
		drop := false
		for _, v := range values {
			v = decode(strings.ReplaceAll(v, "\x00", ""))
			if traversal.MatchString(v) {
				drop = true
				break
			}
			cleaned = append(cleaned, v)
		}
		if !drop {
			out[k] = cleaned
		}
	}
	return out
}

func decode(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}
