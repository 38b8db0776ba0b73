/*
Package zerohttp is an epoll/kqueue-driven HTTP/1.1 engine with zero-copy
request parsing.

Each connection owns a growable read buffer that backs every byte a handler
observes: request line, headers, cookies, query string and body are views
into it, indexed lazily and recycled between keep-alive requests without
invalidating the header-line index. Responses go out as a single buffered
write, or as one gathered write (writev) when the body is large.

Quick start:

	package main

	import (
	    "github.com/searchktools/zerohttp/app"
	    "github.com/searchktools/zerohttp/config"
	    "github.com/searchktools/zerohttp/core/http"
	)

	func main() {
	    cfg := config.New()
	    application := app.New(cfg)

	    engine := application.Engine()
	    engine.GET("/hello", func(ctx *http.Context) error {
	        ctx.RespondString("Hello, World!")
	        return nil
	    })

	    application.Run()
	}

Modules:

  - app: application lifecycle management
  - config: configuration loading and management
  - core: the event loop engine (accept, poll, connection table)
  - core/http: the per-connection HTTP/1.1 state machine
  - core/router: radix-tree routing
  - core/middleware: middleware pipeline
  - core/pools: byte-slab and connection pooling
  - core/poller: I/O multiplexing (epoll/kqueue)
  - core/observability: server counters
*/
package zerohttp
