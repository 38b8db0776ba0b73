package http

import "testing"

// TestSplit tests delimiter splitting with leading-delimiter skipping
func TestSplit(t *testing.T) {
	data := []byte("GET /hi HTTP/1.1\r")
	cur := 0
	end := len(data)

	if got := string(split(data, &cur, end, ' ')); got != "GET" {
		t.Errorf("expected GET, got %q", got)
	}
	if got := string(split(data, &cur, end, ' ')); got != "/hi" {
		t.Errorf("expected /hi, got %q", got)
	}
	if got := string(split(data, &cur, end, '\r')); got != "HTTP/1.1" {
		t.Errorf("expected HTTP/1.1, got %q", got)
	}
}

// TestSplitNoDelimiter tests that the final piece runs to the end
func TestSplitNoDelimiter(t *testing.T) {
	data := []byte("a=1&b=two")
	cur := 0
	end := len(data)

	split(data, &cur, end, '=') // a
	split(data, &cur, end, '&') // 1
	split(data, &cur, end, '=') // b
	if got := string(split(data, &cur, end, '&')); got != "two" {
		t.Errorf("expected two, got %q", got)
	}
	if cur < end {
		t.Errorf("cursor should be past the end, got %d < %d", cur, end)
	}
}

// TestDecodeKV tests key=value iteration
func TestDecodeKV(t *testing.T) {
	got := map[string]string{}
	decodeKV([]byte("a=1&b=two&c=3"), '&', func(k, v []byte) {
		got[string(k)] = string(v)
	})

	want := map[string]string{"a": "1", "b": "two", "c": "3"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %s: expected %q, got %q", k, v, got[k])
		}
	}
}

// TestParseDecimal tests Content-Length parsing
func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"11", 11},
		{"51200", 51200},
		{"42abc", 42},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseDecimal([]byte(tt.in)); got != tt.want {
			t.Errorf("parseDecimal(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestParseHex tests chunk-size parsing
func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"5", 5},
		{"a", 10},
		{"1F", 31},
		{"ff", 255},
		{"c8;ext=1", 200}, // chunk extension ignored
	}
	for _, tt := range tests {
		if got := parseHex([]byte(tt.in)); got != tt.want {
			t.Errorf("parseHex(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestUnescape tests in-place percent decoding
func TestUnescape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a%20b", "a b"},
		{"a+b", "a b"},
		{"%41%42%43", "ABC"},
		{"100%", "100%"},   // truncated escape passes through
		{"%zz", "%zz"},     // malformed escape passes through
		{"caf%C3%A9", "café"},
	}
	for _, tt := range tests {
		in := []byte(tt.in)
		if got := string(unescape(in)); got != tt.want {
			t.Errorf("unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
