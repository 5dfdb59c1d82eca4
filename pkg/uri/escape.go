package uri

import "strings"

const upperhex = "0123456789ABCDEF"

// EscapeFragment percent-encodes every byte of s that is not legal in a URI
// fragment (RFC 3986: unreserved, sub-delims, ':', '@', '/', '?'). '%' is
// never safe, so already-encoded input is encoded a second time.
func EscapeFragment(s string) string {
	return escape(s, fragmentSafe)
}

// escape percent-encodes every byte of s for which safe reports false.
func escape(s string, safe func(byte) bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; safe(c) {
			sb.WriteByte(c)
		} else {
			sb.WriteString(pctEncode(c))
		}
	}
	return sb.String()
}

func fragmentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', // unreserved
		'!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', // sub-delims
		':', '@', '/', '?':
		return true
	}
	return false
}

// querySafe excludes the bytes that would end or reinterpret a
// function-import parameter value.
func querySafe(c byte) bool {
	return c != '&' && c != '+' && fragmentSafe(c)
}

// keySafe excludes the bytes that would end the entity path segment.
func keySafe(c byte) bool {
	return c != '/' && c != '?' && fragmentSafe(c)
}

func pctEncode(c byte) string {
	return string([]byte{'%', upperhex[c>>4], upperhex[c&15]})
}
