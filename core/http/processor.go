package http

import (
	"errors"
	"log"
)

// Handler processes one fully-parsed request. Returning an *Error frames a
// response with that status; ErrUnsupportedMediaType is answered with a 415;
// any other error is reported as a 500.
type Handler func(*Context) error

// Serve drives the request-by-request lifecycle of one connection: locate a
// complete header block, index its lines, run the handler, make sure a
// response went out, then reclaim the request's buffer footprint and start
// over. It returns when the peer disconnects or a parse-fatal condition is
// hit (oversized headers, buffer cap, socket closed mid-request).
func (c *Context) Serve(handler Handler) {
	rb := c.rb
	for {
		c.isBodyRead = false
		c.headerLinesN = 0
		headerEnd := rb.Cursor
		c.addHeaderLine(headerEnd)

		// Scan for CRLFCRLF, recording the start of each header line.
		// Buffered bytes are scanned before asking the socket for more,
		// so pipelined requests never block on a read.
		complete := false
		for !complete {
			data := rb.Bytes()
			for headerEnd < rb.End-3 {
				if data[headerEnd] == '\r' && data[headerEnd+1] == '\n' {
					if !c.addHeaderLine(headerEnd + 2) {
						return
					}
					headerEnd += 2
					if data[headerEnd] == '\r' && data[headerEnd+1] == '\n' {
						complete = true
						headerEnd += 2
						break
					}
				} else {
					headerEnd++
				}
			}
			if complete {
				break
			}
			if rb.ReadMore(c.read, -1) == 0 {
				return
			}
		}

		// Header block is complete; whatever follows it is body prefix.
		c.bodyStart = headerEnd
		c.bodyEnd = headerEnd
		c.prepareRequest()

		c.invokeHandler(handler)
		c.RespondIfNeeded()

		if !c.prepareNextRequest() {
			return
		}
	}
}

// invokeHandler runs the handler behind the error boundary: handler errors
// become responses, panics become logged 500s; neither kills the connection.
func (c *Context) invokeHandler(handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handler panic: %v", r)
			if !c.responseWritten {
				c.SetStatus(500)
				c.RespondString("Internal server error.")
			}
		}
	}()

	err := handler(c)
	if err == nil || c.responseWritten {
		return
	}

	var herr *Error
	switch {
	case errors.As(err, &herr):
		c.SetStatus(herr.Status)
		c.RespondString(herr.Message)
	case errors.Is(err, ErrUnsupportedMediaType):
		c.SetStatus(415)
		c.RespondString("Unsupported media type.")
	default:
		log.Printf("internal server error: %v", err)
		c.SetStatus(500)
		c.RespondString("Internal server error.")
	}
}
