package http

import (
	"bytes"
)

const (
	// A request may carry at most this many header lines; the final entry
	// marks the blank terminator. More is a parse-fatal condition.
	maxHeaderLines = 100

	// Capacity of the response-header scratch the handler appends
	// Set-Cookie and custom headers into.
	headerScratchSize = 1000
)

// span marks a byte range inside the connection's ReadBuffer. Spans survive
// buffer growth, unlike raw slices.
type span struct {
	s, e int
}

// Context is the per-connection request/response state machine. It shares
// the connection's ReadBuffer and hands out views into it: header, cookie,
// query and form values all alias buffer memory and are only valid until the
// request is recycled.
//
// A Context is created once per connection and reused for every request on
// it; it is not safe for concurrent use.
type Context struct {
	rb *ReadBuffer

	read    ReadFn
	write   WriteFn
	writev  WritevFn
	adoptFD func(int)

	serverName string

	// Request line, parsed lazily on first access.
	method  span
	url     span
	proto   span
	query   span
	haveURL bool

	// Offsets of each header line's first byte; entry [headerLinesN-1] is
	// the blank terminator position.
	headerLines  [maxHeaderLines]int
	headerLinesN int

	headerMap map[string]string
	cookieMap map[string]string
	queryMap  map[string]string
	formMap   map[string]string

	contentType   []byte
	contentLength int
	chunked       bool

	bodyStart  int // offset of the first body byte (end of header block)
	bodyEnd    int // one past the last consumed body byte
	isBodyRead bool
	body       []byte

	// Route parameters, filled by the dispatcher.
	paramKeys   [4]string
	paramValues [4]string
	paramCount  int

	status          string
	scratchSpace    [headerScratchSize]byte
	headersScratch  OutputBuffer
	responseWritten bool
	aborted         bool
}

// NewContext binds a context to a connection's read buffer and I/O closures.
// writev may be nil, in which case large responses fall back to two writes.
// adoptFD may be nil; it is the hook a handler uses to hand a new socket
// back to the event loop after a protocol upgrade.
func NewContext(rb *ReadBuffer, read ReadFn, write WriteFn, writev WritevFn, adoptFD func(int), serverName string) *Context {
	c := &Context{
		rb:         rb,
		read:       read,
		write:      write,
		writev:     writev,
		adoptFD:    adoptFD,
		serverName: serverName,
		status:     "200 OK",
	}
	c.headersScratch = NewOutputBuffer(c.scratchSpace[:])
	return c
}

// Method returns the request method. Parsed lazily from the request line.
func (c *Context) Method() string {
	if !c.haveURL {
		c.parseFirstLine()
	}
	return b2s(c.rb.Slice(c.method.s, c.method.e))
}

// Path returns the request URL path, with any query string stripped.
func (c *Context) Path() string {
	if !c.haveURL {
		c.parseFirstLine()
	}
	return b2s(c.rb.Slice(c.url.s, c.url.e))
}

// Proto returns the HTTP version token from the request line.
func (c *Context) Proto() string {
	if !c.haveURL {
		c.parseFirstLine()
	}
	return b2s(c.rb.Slice(c.proto.s, c.proto.e))
}

// QueryString returns the raw query string: the substring of the request URL
// following the first '?', or empty.
func (c *Context) QueryString() string {
	if !c.haveURL {
		c.parseFirstLine()
	}
	return b2s(c.rb.Slice(c.query.s, c.query.e))
}

// Header returns the value of a request header, with leading spaces
// stripped, or "" when absent. The header map is built on first access.
func (c *Context) Header(key string) string {
	if len(c.headerMap) == 0 {
		c.indexHeaders()
	}
	return c.headerMap[key]
}

// Cookie returns the value of a cookie sent in the Cookie header.
func (c *Context) Cookie(key string) string {
	if len(c.cookieMap) == 0 {
		c.indexCookies()
	}
	return c.cookieMap[key]
}

// Query returns a URL-decoded query parameter.
func (c *Context) Query(key string) string {
	if len(c.queryMap) == 0 {
		c.indexQuery()
	}
	return c.queryMap[key]
}

// ContentLength returns the declared request body length.
func (c *Context) ContentLength() int { return c.contentLength }

// Chunked reports whether the request body uses chunked transfer encoding.
func (c *Context) Chunked() bool { return c.chunked }

// SetParam records a route parameter. The dispatcher calls this while
// matching the path; handlers read it back through Param.
func (c *Context) SetParam(key, value string) {
	if c.paramCount < len(c.paramKeys) {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
	}
}

// Param returns a route parameter captured by the router.
func (c *Context) Param(key string) string {
	for i := 0; i < c.paramCount; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	return ""
}

// Abort stops middleware processing for this request.
func (c *Context) Abort() { c.aborted = true }

// IsAborted reports whether a middleware aborted the request.
func (c *Context) IsAborted() bool { return c.aborted }

// AdoptFD hands an accepted socket back to the event loop. Used by handlers
// implementing protocol upgrades; a no-op when the loop did not provide the
// hook.
func (c *Context) AdoptFD(fd int) {
	if c.adoptFD != nil {
		c.adoptFD(fd)
	}
}

// addHeaderLine records the offset of the next header line. Returns false
// when the line index is full.
func (c *Context) addHeaderLine(off int) bool {
	if c.headerLinesN == maxHeaderLines {
		return false
	}
	c.headerLines[c.headerLinesN] = off
	c.headerLinesN++
	return true
}

// parseFirstLine splits the request line on spaces and the URL on '?'.
func (c *Context) parseFirstLine() {
	data := c.rb.Bytes()
	cur := c.headerLines[0]
	end := c.headerLines[1]

	c.method = splitSpan(data, &cur, end, ' ')
	c.url = splitSpan(data, &cur, end, ' ')
	c.proto = splitSpan(data, &cur, end, '\r')

	// URL query string.
	cur = c.url.s
	urlEnd := c.url.e
	c.url = splitSpan(data, &cur, urlEnd, '?')
	if cur < urlEnd {
		c.query = span{cur, urlEnd}
	} else {
		c.query = span{urlEnd, urlEnd}
	}
	c.haveURL = true
}

// splitSpan is split() returning offsets instead of a slice, for the request
// line whose pieces must survive buffer growth.
func splitSpan(data []byte, cur *int, end int, ch byte) span {
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
		return span{start, stop}
	}
	if stop+1 > end {
		return span{start, end}
	}
	return span{start, stop + 1}
}

// prepareRequest derives body framing from the header block. Only lines
// starting with 'C', 'c', 'T' or 't' are scanned here; the full header map
// stays lazy.
func (c *Context) prepareRequest() {
	c.contentLength = 0
	c.chunked = false
	c.contentType = nil

	data := c.rb.Bytes()
	for i := 1; i < c.headerLinesN-1; i++ {
		cur := c.headerLines[i]
		lineEnd := c.headerLines[i+1]

		switch data[cur] {
		case 'C', 'c', 'T', 't':
		default:
			continue
		}

		key := split(data, &cur, lineEnd, ':')
		value := func() []byte {
			return trimLeadingSpaces(split(data, &cur, lineEnd, '\r'))
		}

		switch {
		case bytes.EqualFold(key, strContentLength):
			c.contentLength = parseDecimal(value())
		case bytes.EqualFold(key, strContentType):
			c.contentType = value()
		case bytes.EqualFold(key, strTransferEncoding):
			c.chunked = bytes.EqualFold(value(), strChunked)
		}
	}
}

// indexHeaders builds the lazy header map from the recorded line offsets.
func (c *Context) indexHeaders() {
	c.headerMap = makeOrClear(c.headerMap)
	data := c.rb.Bytes()
	for i := 1; i < c.headerLinesN-1; i++ {
		cur := c.headerLines[i]
		lineEnd := c.headerLines[i+1]
		key := split(data, &cur, lineEnd, ':')
		value := trimLeadingSpaces(split(data, &cur, lineEnd, '\r'))
		c.headerMap[b2s(key)] = b2s(value)
	}
}

// indexCookies splits the Cookie header into the lazy cookie map.
func (c *Context) indexCookies() {
	c.cookieMap = makeOrClear(c.cookieMap)
	cookies := c.Header("Cookie")
	if cookies == "" {
		return
	}
	data := s2b(cookies)
	cur, end := 0, len(data)
	for cur < end {
		key := trimLeadingSpaces(split(data, &cur, end, '='))
		value := split(data, &cur, end, ';')
		c.cookieMap[b2s(key)] = b2s(value)
	}
}

// indexQuery URL-decodes the query string into the lazy query map.
func (c *Context) indexQuery() {
	c.queryMap = makeOrClear(c.queryMap)
	if !c.haveURL {
		c.parseFirstLine()
	}
	decodeKV(c.rb.Slice(c.query.s, c.query.e), '&', func(k, v []byte) {
		c.queryMap[b2s(unescape(k))] = b2s(unescape(v))
	})
}

// ReadBody streams the request body to cb, decoding Content-Length or
// chunked framing. Delivered regions are freed as they are consumed, so a
// body larger than the buffer cap still fits. The callback must not retain
// the slice past its invocation.
func (c *Context) ReadBody(cb func(part []byte)) error {
	c.isBodyRead = true

	switch {
	case !c.chunked && c.contentLength == 0:
		c.bodyEnd = c.bodyStart

	case c.contentLength > 0:
		// Deliver the prefix already in the buffer.
		prefix := c.rb.End - c.bodyStart
		if prefix > c.contentLength {
			prefix = c.contentLength
		}
		if prefix > 0 {
			cb(c.rb.Slice(c.bodyStart, c.bodyStart+prefix))
		}
		c.bodyEnd = c.bodyStart + prefix

		read := prefix
		for read < c.contentLength {
			part := c.rb.ReadMoreTail(c.read)
			if len(part) == 0 {
				return ErrSocketClosed
			}
			n := len(part)
			if n > c.contentLength-read {
				n = c.contentLength - read
			}
			start := c.rb.End - len(part)
			cb(c.rb.Slice(start, start+n))
			endBefore := c.rb.End
			c.rb.Free(start, start+n)
			if c.rb.End == endBefore {
				// The freed part is a hole before the next request's
				// bytes; the body ends after it.
				c.bodyEnd = start + n
			}
			read += n
		}

	default: // chunked
		cur := c.bodyStart
		size, err := c.readChunkSize(&cur)
		if err != nil {
			return err
		}
		for size > 0 {
			chunk, ok := c.rb.ReadN(c.read, cur, size)
			if !ok {
				return ErrSocketClosed
			}
			cb(chunk)

			// When Free physically reclaims the chunk (it was the
			// buffer tail, or compaction ran) the rest of the stream
			// now lands at cur; otherwise a hole is left and offsets
			// keep their distance.
			endBefore := c.rb.End
			c.rb.Free(cur, cur+size)
			if c.rb.End < endBefore {
				cur += 2 // skip the chunk's trailing CRLF
			} else {
				cur += size + 2
			}

			if size, err = c.readChunkSize(&cur); err != nil {
				return err
			}
		}
		if _, ok := c.rb.ReadN(c.read, cur, 2); !ok { // terminating CRLF
			return ErrSocketClosed
		}
		cur += 2
		c.bodyEnd = cur
	}
	return nil
}

// ReadWholeBody materializes the body as one contiguous region of the read
// buffer. Chunked payloads are compacted in place, each chunk moved
// immediately after the previous one.
func (c *Context) ReadWholeBody() ([]byte, error) {
	if !c.chunked && c.contentLength == 0 {
		c.isBodyRead = true
		c.bodyEnd = c.bodyStart
		return nil, nil
	}

	if c.contentLength > 0 {
		body, ok := c.rb.ReadN(c.read, c.bodyStart, c.contentLength)
		if !ok {
			return nil, ErrSocketClosed
		}
		c.body = body
		c.bodyEnd = c.bodyStart + c.contentLength
	} else { // chunked
		out := c.bodyStart
		cur := c.bodyStart
		size, err := c.readChunkSize(&cur)
		if err != nil {
			return nil, err
		}
		for size > 0 {
			chunk, ok := c.rb.ReadN(c.read, cur, size)
			if !ok {
				return nil, ErrSocketClosed
			}
			cur += size + 2
			// Chunk data always sits at or past the write position;
			// copy is overlap-safe.
			copy(c.rb.Bytes()[out:], chunk)
			out += size

			if size, err = c.readChunkSize(&cur); err != nil {
				return nil, err
			}
		}
		if _, ok := c.rb.ReadN(c.read, cur, 2); !ok {
			return nil, ErrSocketClosed
		}
		cur += 2
		c.bodyEnd = cur
		c.body = c.rb.Slice(c.bodyStart, out)
	}

	c.isBodyRead = true
	return c.body, nil
}

// readChunkSize parses a hex chunk-size line at *cur and leaves *cur on the
// first byte after its CRLF.
func (c *Context) readChunkSize(cur *int) (int, error) {
	line, ok := c.rb.ReadUntil(c.read, cur, '\r')
	if !ok {
		return 0, ErrSocketClosed
	}
	*cur++ // skip \n
	return parseHex(line), nil
}

// PostParams parses an application/x-www-form-urlencoded body into the form
// map. Other content types are refused with ErrUnsupportedMediaType so the
// handler can answer 4xx.
func (c *Context) PostParams() (map[string]string, error) {
	if !bytes.HasPrefix(c.contentType, strFormURLEncoded) {
		return nil, ErrUnsupportedMediaType
	}
	if !c.isBodyRead {
		if _, err := c.ReadWholeBody(); err != nil {
			return nil, err
		}
	}
	c.formMap = makeOrClear(c.formMap)
	decodeKV(c.body, '&', func(k, v []byte) {
		c.formMap[b2s(unescape(k))] = b2s(unescape(v))
	})
	return c.formMap, nil
}

// PostParam returns one form parameter, or "" on missing key or a non-form
// content type.
func (c *Context) PostParam(key string) string {
	params, err := c.PostParams()
	if err != nil {
		return ""
	}
	return params[key]
}

// prepareNextRequest drains any unread body, reclaims the request's buffer
// footprint and clears per-request state so the connection can parse the
// next request. Returns false when the connection died mid-body.
func (c *Context) prepareNextRequest() bool {
	if !c.isBodyRead {
		if _, err := c.ReadWholeBody(); err != nil {
			return false
		}
	}

	c.rb.Free(c.headerLines[0], c.bodyEnd)

	c.headersScratch.Reset()
	c.status = "200 OK"
	c.method, c.url, c.proto, c.query = span{}, span{}, span{}, span{}
	c.haveURL = false
	c.contentType = nil
	clear(c.headerMap)
	clear(c.cookieMap)
	clear(c.queryMap)
	clear(c.formMap)
	c.body = nil
	c.paramCount = 0
	c.responseWritten = false
	c.aborted = false
	return true
}

// makeOrClear reuses a lazy map across requests without reallocating it.
func makeOrClear(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string, 8)
	}
	clear(m)
	return m
}

var (
	strContentLength    = []byte("Content-Length")
	strContentType      = []byte("Content-Type")
	strTransferEncoding = []byte("Transfer-Encoding")
	strChunked          = []byte("chunked")
	strFormURLEncoded   = []byte("application/x-www-form-urlencoded")
)
