package http

import "unsafe"

// b2s converts a byte slice to a string without allocation.
// WARNING: the returned string shares memory with the byte slice; it is only
// valid while the current request owns the underlying buffer region.
func b2s(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// s2b converts a string to a byte slice without allocation. The result must
// not be written to.
func s2b(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// split returns the run of bytes between *cur and the next occurrence of ch,
// skipping any leading occurrences of ch first. *cur is left just past the
// delimiter. end is one past the last byte of the line; when no delimiter is
// found before it, the returned slice runs to end.
func split(data []byte, cur *int, end int, ch byte) []byte {
	start := *cur
	for start < end-1 && data[start] == ch {
		start++
	}
	stop := start + 1
	for stop < end-1 && data[stop] != ch {
		stop++
	}
	*cur = stop + 1
	if stop < end && data[stop] == ch {
		return data[start:stop]
	}
	if stop+1 > end {
		return data[start:end]
	}
	return data[start : stop+1]
}

// trimLeadingSpaces drops leading spaces from a header or cookie value.
func trimLeadingSpaces(v []byte) []byte {
	for len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return v
}

// decodeKV iterates key=value pairs separated by sep, as found in query
// strings, urlencoded form bodies and Cookie headers.
func decodeKV(data []byte, sep byte, kv func(key, value []byte)) {
	cur, end := 0, len(data)
	for cur < end {
		key := split(data, &cur, end, '=')
		value := split(data, &cur, end, sep)
		kv(key, value)
	}
}

// parseDecimal parses a non-negative base-10 integer, stopping at the first
// non-digit. Used for Content-Length values.
func parseDecimal(b []byte) int {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// parseHex parses a chunk-size line: a base-16 integer, stopping at the
// first non-hex byte (chunk extensions are ignored).
func parseHex(b []byte) int {
	n := 0
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			n = n<<4 | int(c-'0')
		case c >= 'a' && c <= 'f':
			n = n<<4 | int(c-'a'+10)
		case c >= 'A' && c <= 'F':
			n = n<<4 | int(c-'A'+10)
		default:
			return n
		}
	}
	return n
}

// unescape percent-decodes b in place and turns '+' into a space, returning
// the shortened slice. Malformed escapes are passed through verbatim.
func unescape(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] != '%' && b[i] != '+' {
		i++
	}
	if i == len(b) {
		return b
	}

	w := i
	for i < len(b) {
		switch c := b[i]; c {
		case '%':
			if i+2 < len(b) {
				hi, ok1 := unhex(b[i+1])
				lo, ok2 := unhex(b[i+2])
				if ok1 && ok2 {
					b[w] = hi<<4 | lo
					w++
					i += 3
					continue
				}
			}
			b[w] = c
			w++
			i++
		case '+':
			b[w] = ' '
			w++
			i++
		default:
			b[w] = c
			w++
			i++
		}
	}
	return b[:w]
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
