package http

import (
	"bytes"
	"testing"
)

// scriptedRead returns a ReadFn delivering in at most chunk bytes per call,
// then 0 forever. chunk <= 0 delivers as much as fits.
func scriptedRead(in []byte, chunk int) ReadFn {
	pos := 0
	return func(p []byte) int {
		if pos >= len(in) {
			return 0
		}
		n := len(in) - pos
		if chunk > 0 && n > chunk {
			n = chunk
		}
		if n > len(p) {
			n = len(p)
		}
		copy(p, in[pos:pos+n])
		pos += n
		return n
	}
}

// TestReadMore tests basic reads and the closed-socket signal
func TestReadMore(t *testing.T) {
	rb := NewReadBuffer(nil)
	read := scriptedRead([]byte("hello"), 0)

	if n := rb.ReadMore(read, -1); n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}
	if got := string(rb.Slice(rb.Cursor, rb.End)); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if n := rb.ReadMore(read, -1); n != 0 {
		t.Errorf("expected 0 on closed socket, got %d", n)
	}
}

// TestReadMoreGrowth tests capacity doubling and the hard cap
func TestReadMoreGrowth(t *testing.T) {
	rb := NewReadBuffer(nil)
	fill := func(p []byte) int { return len(p) }

	for rb.ReadMore(fill, -1) > 0 {
	}

	if len(rb.Bytes()) < readBufferMaxSize {
		t.Errorf("buffer stopped growing at %d, expected at least %d", len(rb.Bytes()), readBufferMaxSize)
	}
	if rb.End != len(rb.Bytes()) {
		t.Errorf("expected buffer full at the cap, end=%d cap=%d", rb.End, len(rb.Bytes()))
	}
}

// TestReadMoreTail tests that exactly the just-received bytes are returned
func TestReadMoreTail(t *testing.T) {
	rb := NewReadBuffer(nil)
	read := scriptedRead([]byte("abcdef"), 4)

	part := rb.ReadMoreTail(read)
	if string(part) != "abcd" {
		t.Errorf("expected abcd, got %q", part)
	}
	part = rb.ReadMoreTail(read)
	if string(part) != "ef" {
		t.Errorf("expected ef, got %q", part)
	}
	if part = rb.ReadMoreTail(read); len(part) != 0 {
		t.Errorf("expected empty tail on closed socket, got %q", part)
	}
}

// TestReadN tests reading an exact span across fragmented deliveries
func TestReadN(t *testing.T) {
	rb := NewReadBuffer(nil)
	read := scriptedRead([]byte("0123456789"), 3)

	b, ok := rb.ReadN(read, 0, 7)
	if !ok {
		t.Fatal("ReadN failed")
	}
	if string(b) != "0123456" {
		t.Errorf("expected 0123456, got %q", b)
	}

	if _, ok := rb.ReadN(read, 0, 100); ok {
		t.Error("expected failure when the socket closes before n bytes")
	}
}

// TestReadUntil tests delimiter scanning across fragmented deliveries
func TestReadUntil(t *testing.T) {
	rb := NewReadBuffer(nil)
	read := scriptedRead([]byte("key:value\rrest"), 2)

	cur := 0
	b, ok := rb.ReadUntil(read, &cur, ':')
	if !ok || string(b) != "key" {
		t.Fatalf("expected key, got %q ok=%v", b, ok)
	}
	if cur != 4 {
		t.Errorf("cursor should sit past the delimiter, got %d", cur)
	}

	b, ok = rb.ReadUntil(read, &cur, '\r')
	if !ok || string(b) != "value" {
		t.Fatalf("expected value, got %q ok=%v", b, ok)
	}

	if _, ok = rb.ReadUntil(read, &cur, 'x'); ok {
		t.Error("expected failure for a delimiter that never arrives")
	}
}

// TestFreeWhole tests that freeing the entire valid region rewinds to zero
func TestFreeWhole(t *testing.T) {
	rb := NewReadBuffer(nil)
	rb.ReadMore(scriptedRead([]byte("abcdef"), 0), -1)

	rb.Free(rb.Cursor, rb.End)
	if rb.Cursor != 0 || rb.End != 0 {
		t.Errorf("expected rewound buffer, got cursor=%d end=%d", rb.Cursor, rb.End)
	}
}

// TestFreePrefix tests that freeing a leading range advances the cursor
func TestFreePrefix(t *testing.T) {
	rb := NewReadBuffer(nil)
	rb.ReadMore(scriptedRead([]byte("abcdef"), 0), -1)

	rb.Free(0, 2)
	if rb.Cursor != 2 || rb.End != 6 {
		t.Errorf("expected cursor=2 end=6, got cursor=%d end=%d", rb.Cursor, rb.End)
	}
	if got := string(rb.Slice(rb.Cursor, rb.End)); got != "cdef" {
		t.Errorf("expected cdef, got %q", got)
	}
}

// TestFreeSuffix tests that freeing a trailing range retracts the end
func TestFreeSuffix(t *testing.T) {
	rb := NewReadBuffer(nil)
	rb.ReadMore(scriptedRead([]byte("abcdef"), 0), -1)

	rb.Free(4, 6)
	if rb.Cursor != 0 || rb.End != 4 {
		t.Errorf("expected cursor=0 end=4, got cursor=%d end=%d", rb.Cursor, rb.End)
	}
}

// TestFreeInteriorHole tests the deferred-compaction policy: an interior
// hole is left alone while tail space is plentiful and compacted once the
// tail drops below a quarter of capacity
func TestFreeInteriorHole(t *testing.T) {
	rb := NewReadBuffer(nil)
	capacity := len(rb.Bytes())

	// Plenty of tail space: the hole stays.
	rb.ReadMore(scriptedRead([]byte("abcdefgh"), 0), -1)
	rb.Free(2, 4)
	if rb.End != 8 {
		t.Errorf("hole should not compact with a roomy tail, end=%d", rb.End)
	}

	// Fill until under a quarter of capacity remains, then free interior.
	rb.Cursor, rb.End = 0, 0
	data := bytes.Repeat([]byte{'x'}, capacity-capacity/8)
	rb.ReadMore(scriptedRead(data, 0), -1)
	copy(rb.Bytes()[0:], "abcdefgh")
	end := rb.End

	rb.Free(2, 4)
	if rb.End != end-2 {
		t.Errorf("expected compaction to shrink end to %d, got %d", end-2, rb.End)
	}
	if got := string(rb.Slice(0, 6)); got != "abefgh" {
		t.Errorf("expected abefgh after compaction, got %q", got)
	}
}

// TestReset tests relocation of the remaining bytes to offset zero
func TestReset(t *testing.T) {
	rb := NewReadBuffer(nil)
	rb.ReadMore(scriptedRead([]byte("abcdef"), 0), -1)
	rb.Free(0, 2)

	rb.Reset()
	if rb.Cursor != 0 || rb.End != 4 {
		t.Errorf("expected cursor=0 end=4, got cursor=%d end=%d", rb.Cursor, rb.End)
	}
	if got := string(rb.Slice(0, 4)); got != "cdef" {
		t.Errorf("expected cdef, got %q", got)
	}

	rb.Free(0, 4)
	rb.Reset()
	if rb.Cursor != 0 || rb.End != 0 {
		t.Errorf("expected empty buffer after reset, got cursor=%d end=%d", rb.Cursor, rb.End)
	}
}
