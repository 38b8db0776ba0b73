package http

import "testing"

// TestOutputBufferAppend tests the append forms and Bytes
func TestOutputBufferAppend(t *testing.T) {
	var slab [64]byte
	out := NewOutputBuffer(slab[:])

	out.AppendString("Content-Length: ").AppendInt(42).AppendString("\r\n")
	out.AppendByte('!')
	out.AppendBytes([]byte("tail"))

	if got := string(out.Bytes()); got != "Content-Length: 42\r\n!tail" {
		t.Errorf("unexpected buffer contents: %q", got)
	}
	if out.Len() != len("Content-Length: 42\r\n!tail") {
		t.Errorf("unexpected length %d", out.Len())
	}
}

// TestOutputBufferAppendInt tests inline decimal conversion
func TestOutputBufferAppendInt(t *testing.T) {
	tests := []struct {
		v    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{10, "10"},
		{51200, "51200"},
		{-42, "-42"},
		{1234567890, "1234567890"},
	}

	for _, tt := range tests {
		var slab [32]byte
		out := NewOutputBuffer(slab[:])
		out.AppendInt(tt.v)
		if got := string(out.Bytes()); got != tt.want {
			t.Errorf("AppendInt(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

// TestOutputBufferReset tests that Reset rewinds without clearing the slab
func TestOutputBufferReset(t *testing.T) {
	var slab [16]byte
	out := NewOutputBuffer(slab[:])

	out.AppendString("abc")
	out.Reset()
	if out.Len() != 0 {
		t.Errorf("expected empty buffer after reset, len=%d", out.Len())
	}
	out.AppendString("xy")
	if got := string(out.Bytes()); got != "xy" {
		t.Errorf("expected xy, got %q", got)
	}
}
