package middleware

import (
	"log"
	"strconv"
	"sync/atomic"

	"github.com/searchktools/zerohttp/core/http"
)

// Middleware runs before the route handler. A middleware that returns an
// error or calls Abort stops the rest of the pipeline; responding alone does
// not.
type Middleware func(*http.Context) error

// Pipeline is an ordered middleware chain applied in front of every route
// handler.
type Pipeline struct {
	handlers []Middleware
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{handlers: make([]Middleware, 0, 8)}
}

// Use appends a middleware to the pipeline.
func (p *Pipeline) Use(mw Middleware) *Pipeline {
	p.handlers = append(p.handlers, mw)
	return p
}

// Run executes the pipeline in front of final for one request, without the
// closure allocation Wrap pays. This is what the engine's dispatch uses.
func (p *Pipeline) Run(ctx *http.Context, final http.Handler) error {
	for _, mw := range p.handlers {
		if err := mw(ctx); err != nil {
			return err
		}
		if ctx.IsAborted() {
			return nil
		}
	}
	return final(ctx)
}

// Wrap returns final with the pipeline applied in front of it. With no
// middlewares registered, final is returned unchanged.
func (p *Pipeline) Wrap(final http.Handler) http.Handler {
	if len(p.handlers) == 0 {
		return final
	}
	handlers := p.handlers
	return func(ctx *http.Context) error {
		for _, mw := range handlers {
			if err := mw(ctx); err != nil {
				return err
			}
			if ctx.IsAborted() {
				return nil
			}
		}
		return final(ctx)
	}
}

// Logger logs one line per request.
func Logger() Middleware {
	return func(ctx *http.Context) error {
		log.Printf("[%s] %s", ctx.Method(), ctx.Path())
		return nil
	}
}

// CORS answers preflight requests and stamps permissive CORS headers.
func CORS() Middleware {
	return func(ctx *http.Context) error {
		ctx.SetHeader("Access-Control-Allow-Origin", "*")
		ctx.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if ctx.Method() == "OPTIONS" {
			ctx.SetStatus(204)
			ctx.Respond(nil)
			ctx.Abort()
		}
		return nil
	}
}

// RequestID stamps each response with a process-unique request id.
func RequestID() Middleware {
	var counter atomic.Uint64
	return func(ctx *http.Context) error {
		ctx.SetHeader("X-Request-ID", strconv.FormatUint(counter.Add(1), 10))
		return nil
	}
}
