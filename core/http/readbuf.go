package http

import "bytes"

const (
	// Initial size of a connection's read buffer.
	readBufferInitSize = 4 * 1024

	// A connection whose buffered request grows past this limit is dropped.
	readBufferMaxSize = 10 * 1024 * 1024
)

// ReadFn pulls more bytes from the socket into p. It returns the number of
// bytes read, or 0 when the peer closed the connection or a fatal I/O error
// occurred. A ReadFn may suspend the calling goroutine until the socket is
// readable.
type ReadFn func(p []byte) int

// WriteFn pushes p to the socket, suspending on backpressure until everything
// is written. Calling it with a nil slice is a cooperative yield: it blocks
// until the socket is writable and sends nothing. It returns false when the
// connection is dead.
type WriteFn func(p []byte) bool

// WritevFn is the gathered-write counterpart of WriteFn. Implementations
// should hand the slices to a single writev when the platform allows it and
// may fall back to sequential writes.
type WritevFn func(bufs ...[]byte) bool

// ReadBuffer is the backing store for everything a request handler observes:
// request line, headers, cookies, query string and body all alias its array.
// The valid region is [Cursor, End). All positions handed out by its methods
// are integer offsets into the array, so growing the array never invalidates
// the header-line index.
type ReadBuffer struct {
	buf    []byte
	Cursor int // first unread byte
	End    int // one past the last byte received
}

// NewReadBuffer returns a buffer backed by slab, or by a fresh 4 KiB array
// when slab is nil. Slabs shorter than the initial size are ignored.
func NewReadBuffer(slab []byte) *ReadBuffer {
	if cap(slab) < readBufferInitSize {
		slab = make([]byte, readBufferInitSize)
	}
	return &ReadBuffer{buf: slab[:cap(slab)]}
}

// Bytes returns the backing array. Mainly useful for returning the slab to a
// pool once the connection is gone.
func (rb *ReadBuffer) Bytes() []byte { return rb.buf }

// Slice returns the bytes in [i1, i2).
func (rb *ReadBuffer) Slice(i1, i2 int) []byte { return rb.buf[i1:i2] }

// Empty reports whether all received bytes have been consumed.
func (rb *ReadBuffer) Empty() bool { return rb.Cursor == rb.End }

// Len returns the amount of data currently available to read.
func (rb *ReadBuffer) Len() int { return rb.End - rb.Cursor }

// ReadMore pulls more bytes from the socket, growing the array when it is
// full. size caps the read; pass -1 to fill the remaining space. Returns the
// number of bytes received, or 0 when the peer closed, a read failed, or the
// buffer already sits at its hard cap.
func (rb *ReadBuffer) ReadMore(read ReadFn, size int) int {
	if rb.End == len(rb.buf) {
		if len(rb.buf) >= readBufferMaxSize {
			return 0 // buffer is full, drop the connection
		}
		newSize := len(rb.buf) * 2
		if newSize > readBufferMaxSize {
			newSize = readBufferMaxSize
		}
		grown := make([]byte, newSize)
		copy(grown, rb.buf)
		rb.buf = grown
	}

	if size < 0 || size > len(rb.buf)-rb.End {
		size = len(rb.buf) - rb.End
	}
	n := read(rb.buf[rb.End : rb.End+size])
	if n <= 0 {
		return 0
	}
	rb.End += n
	return n
}

// ReadMoreTail reads more data and returns exactly the bytes just received,
// i.e. the new tail of the valid region. The slice is empty when the
// connection is gone.
func (rb *ReadBuffer) ReadMoreTail(read ReadFn) []byte {
	n := rb.ReadMore(read, -1)
	return rb.buf[rb.End-n : rb.End]
}

// ReadN ensures n bytes are available starting at offset start, reading from
// the socket as needed, and returns them. ok is false when the connection
// died before n bytes arrived.
func (rb *ReadBuffer) ReadN(read ReadFn, start, n int) (b []byte, ok bool) {
	for rb.End < start+n {
		if rb.ReadMore(read, -1) == 0 {
			return nil, false
		}
	}
	return rb.buf[start : start+n], true
}

// ReadUntil scans forward from *cur for delim, pulling more data as needed.
// It returns the bytes before the delimiter and leaves *cur just past it.
// *cur may sit past End; the scan starts once enough bytes have arrived.
func (rb *ReadBuffer) ReadUntil(read ReadFn, cur *int, delim byte) (b []byte, ok bool) {
	start := *cur
	pos := start
	for {
		if pos < rb.End {
			if i := bytes.IndexByte(rb.buf[pos:rb.End], delim); i >= 0 {
				pos += i
				break
			}
			pos = rb.End
		}
		if rb.ReadMore(read, -1) == 0 {
			return nil, false
		}
	}
	*cur = pos + 1
	return rb.buf[start:pos], true
}

// Free marks [i1, i2) as no longer needed. Freeing the whole valid region
// rewinds the buffer; freeing a prefix or suffix shrinks it. An interior hole
// is compacted only when the tail free space has dropped below a quarter of
// the capacity, otherwise the hole is left in place and reclaimed with the
// rest of the request footprint later.
func (rb *ReadBuffer) Free(i1, i2 int) {
	if i1 >= i2 {
		return
	}
	switch {
	case i1 == rb.Cursor && i2 == rb.End: // eat the whole buffer
		rb.Cursor, rb.End = 0, 0
	case i1 == rb.Cursor: // eat the beginning
		rb.Cursor = i2
	case i2 == rb.End: // eat the end
		rb.End = i1
	default: // eat somewhere in the middle
		if len(rb.buf)-rb.End < len(rb.buf)/4 {
			copy(rb.buf[i1:], rb.buf[i2:rb.End])
			rb.End -= i2 - i1
		}
	}
}

// Reset relocates the remaining valid bytes to offset 0.
func (rb *ReadBuffer) Reset() {
	if rb.Cursor == rb.End {
		rb.Cursor, rb.End = 0, 0
		return
	}
	copy(rb.buf, rb.buf[rb.Cursor:rb.End])
	rb.End -= rb.Cursor
	rb.Cursor = 0
}
