package http

import (
	"encoding/json"

	"github.com/valyala/bytebufferpool"
	"google.golang.org/protobuf/proto"
)

const (
	// Bodies up to this size are sent in a single buffered write; anything
	// larger goes out as a gathered write of [headers, body].
	inlineBodyLimit = 10000

	// Slab size for the response header block plus an inline body.
	responseSlabSize = 10200
)

// SetStatus selects the response status line. Unknown codes fall back to
// 200 OK.
func (c *Context) SetStatus(code int) {
	c.status = statusLine(code)
}

// SetHeader appends a custom header to the response header scratch. The
// scratch is emitted verbatim into the response header block.
func (c *Context) SetHeader(k, v string) {
	c.headersScratch.AppendString(k).AppendString(": ").AppendString(v).AppendString("\r\n")
}

// SetCookie appends a Set-Cookie header to the response header scratch.
func (c *Context) SetCookie(k, v string) {
	c.headersScratch.AppendString("Set-Cookie: ").AppendString(k).AppendByte('=').AppendString(v).AppendString("\r\n")
}

// formatTopHeaders writes the status line and the always-present headers.
func (c *Context) formatTopHeaders(out *OutputBuffer) {
	out.AppendString("HTTP/1.1 ").AppendString(c.status).AppendString("\r\n")
	out.AppendString("Date: ").AppendBytes(ServerDate()).AppendString("\r\n")
	out.AppendString("Connection: keep-alive\r\nServer: ").AppendString(c.serverName).AppendString("\r\n")
}

// Respond sends body with the current status and accumulated headers. Small
// bodies are appended to the header slab and sent with one write; large
// bodies are sent as a gathered write so the payload is never copied.
func (c *Context) Respond(body []byte) {
	c.responseWritten = true
	var slab [responseSlabSize]byte
	out := NewOutputBuffer(slab[:])

	c.formatTopHeaders(&out)
	out.AppendBytes(c.headersScratch.Bytes())
	out.AppendString("Content-Length: ").AppendInt(len(body)).AppendString("\r\n\r\n")

	if len(body) > inlineBodyLimit {
		if c.writev != nil {
			c.writev(out.Bytes(), body)
			return
		}
		// No gather support on this transport: two writes.
		if c.write(out.Bytes()) {
			c.write(body)
		}
		return
	}

	out.AppendBytes(body)
	c.write(out.Bytes())
}

// RespondString is Respond for string bodies.
func (c *Context) RespondString(body string) {
	c.Respond(s2b(body))
}

// RespondJSON encodes v and sends it as application/json.
func (c *Context) RespondJSON(v any) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	if err := json.NewEncoder(bb).Encode(v); err != nil {
		return err
	}
	// Encode appends a trailing newline; the wire body should not carry it.
	payload := bb.B
	if n := len(payload); n > 0 && payload[n-1] == '\n' {
		payload = payload[:n-1]
	}

	c.SetHeader("Content-Type", "application/json")
	c.Respond(payload)
	return nil
}

// RespondProto marshals m and sends it as application/x-protobuf.
func (c *Context) RespondProto(m proto.Message) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	payload, err := proto.MarshalOptions{}.MarshalAppend(bb.B[:0], m)
	if err != nil {
		return err
	}
	bb.B = payload

	c.SetHeader("Content-Type", "application/x-protobuf")
	c.Respond(payload)
	return nil
}

// RespondIfNeeded emits a zero-length response when the handler produced
// none, so every request gets exactly one response.
func (c *Context) RespondIfNeeded() {
	if c.responseWritten {
		return
	}
	c.responseWritten = true

	var slab [responseSlabSize]byte
	out := NewOutputBuffer(slab[:])
	c.formatTopHeaders(&out)
	out.AppendBytes(c.headersScratch.Bytes())
	out.AppendString("Content-Length: 0\r\n\r\n")
	c.write(out.Bytes())
}
