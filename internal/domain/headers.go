package domain

import "strings"

// hopByHopHeaders apply to a single transport hop and must never be copied
// from a service reply onto the client response.
var hopByHopHeaders = map[string]struct{}{
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Te":                {},
	"Trailer":           {},
}

// IsHopByHop reports whether name is a hop-by-hop header. Proxy-* headers
// are matched by prefix.
func IsHopByHop(name string) bool {
	canonical := canonicalish(name)
	if _, ok := hopByHopHeaders[canonical]; ok {
		return true
	}
	return strings.HasPrefix(canonical, "Proxy-")
}

// canonicalish normalises a header name enough for policy checks without
// pulling in textproto.
func canonicalish(name string) string {
	parts := strings.Split(strings.ToLower(name), "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

// unloggedContentTypes lists content types whose bodies stay out of the
// access log. Prefix entries (trailing "/") match whole media-type families.
var unloggedContentTypes = []string{
	"multipart/form-data",
	"application/octet-stream",
	"application/pdf",
	"image/",
	"video/",
	"audio/",
}

// ShouldLogBody reports whether a body with the given Content-Type is safe
// to include in the access log. An empty content type is considered
// loggable, matching the behaviour for plain JSON and text.
func ShouldLogBody(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, excluded := range unloggedContentTypes {
		if strings.Contains(ct, excluded) {
			return false
		}
	}
	return true
}
