package core

import (
	"log"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/tcplisten"
	"golang.org/x/sys/unix"

	"github.com/searchktools/zerohttp/core/http"
	"github.com/searchktools/zerohttp/core/middleware"
	"github.com/searchktools/zerohttp/core/observability"
	"github.com/searchktools/zerohttp/core/poller"
	"github.com/searchktools/zerohttp/core/pools"
	"github.com/searchktools/zerohttp/core/router"
)

// conn is the engine-side state of one accepted socket. The HTTP state
// machine runs on its own goroutine; the poller goroutine wakes it through
// the readiness channels when the socket would otherwise block.
type conn struct {
	fd         int
	readable   chan struct{}
	writable   chan struct{}
	closed     chan struct{}
	closeOnce  sync.Once
	lastActive atomic.Int64 // unix nanos
}

func (c *conn) Reset() {
	c.fd = -1
}

func (c *conn) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// Engine drives the event loop: it accepts connections, watches their
// descriptors, and runs one connection processor goroutine per socket with
// read/write closures that suspend on EAGAIN until the poller reports
// readiness.
type Engine struct {
	// Settable before Run.
	ServerName  string
	IdleTimeout time.Duration
	MaxConns    int
	ReusePort   bool

	router   *router.Router
	pipeline *middleware.Pipeline
	poller   poller.Poller

	conns  map[int]*conn
	connMu sync.RWMutex

	stats    observability.ServerStats
	bytePool *pools.BytePool
	connPool *pools.ConnectionPool
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	e := &Engine{
		ServerName:  DefaultServerName,
		IdleTimeout: DefaultIdleTimeout,
		MaxConns:    DefaultMaxConns,
		router:      router.New(),
		pipeline:    middleware.NewPipeline(),
		conns:       make(map[int]*conn, 1024),
		bytePool:    pools.NewBytePool(),
	}
	e.connPool = pools.NewConnectionPool(func() any {
		return &conn{fd: -1}
	})
	return e
}

// Use appends a middleware applied in front of every route handler.
func (e *Engine) Use(mw middleware.Middleware) {
	e.pipeline.Use(mw)
}

// Handle registers a handler for an arbitrary method.
func (e *Engine) Handle(method, path string, handler http.Handler) {
	e.router.Add(method, path, handler)
}

// GET registers a GET route.
func (e *Engine) GET(path string, handler http.Handler) { e.Handle("GET", path, handler) }

// POST registers a POST route.
func (e *Engine) POST(path string, handler http.Handler) { e.Handle("POST", path, handler) }

// PUT registers a PUT route.
func (e *Engine) PUT(path string, handler http.Handler) { e.Handle("PUT", path, handler) }

// DELETE registers a DELETE route.
func (e *Engine) DELETE(path string, handler http.Handler) { e.Handle("DELETE", path, handler) }

// PATCH registers a PATCH route.
func (e *Engine) PATCH(path string, handler http.Handler) { e.Handle("PATCH", path, handler) }

// HEAD registers a HEAD route.
func (e *Engine) HEAD(path string, handler http.Handler) { e.Handle("HEAD", path, handler) }

// OPTIONS registers an OPTIONS route.
func (e *Engine) OPTIONS(path string, handler http.Handler) { e.Handle("OPTIONS", path, handler) }

// Static serves files under root for paths matching prefix, e.g.
// Static("/assets", "./public"). Requests escaping root answer 404.
func (e *Engine) Static(prefix, root string) {
	pattern := strings.TrimSuffix(prefix, "/") + "/*filepath"
	e.GET(pattern, func(ctx *http.Context) error {
		rel := filepath.Clean("/" + ctx.Param("filepath"))
		return ctx.SendFile(filepath.Join(root, rel))
	})
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() observability.Snapshot {
	return e.stats.Snapshot()
}

// Run binds addr and serves until the listener dies. The listener is built
// with tcplisten so SO_REUSEPORT deployments can run one engine per core.
func (e *Engine) Run(addr string) error {
	lcfg := tcplisten.Config{
		ReusePort:   e.ReusePort,
		DeferAccept: true,
	}
	ln, err := lcfg.NewListener("tcp4", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	lnFile, err := ln.(*net.TCPListener).File()
	if err != nil {
		return err
	}
	lfd := int(lnFile.Fd())
	if err := unix.SetNonblock(lfd, true); err != nil {
		return err
	}

	e.poller, err = poller.NewPoller()
	if err != nil {
		return err
	}
	defer e.poller.Close()

	if err := e.poller.Add(lfd); err != nil {
		return err
	}

	log.Printf("🚀 %s listening on %s", e.ServerName, addr)

	go e.sweepIdleConns()

	for {
		events, err := e.poller.Wait(pollTimeoutMs)
		if err != nil {
			log.Printf("poller wait error: %v", err)
			continue
		}

		for _, ev := range events {
			if ev.FD == lfd {
				e.acceptConns(lfd)
				continue
			}

			e.connMu.RLock()
			c, ok := e.conns[ev.FD]
			e.connMu.RUnlock()
			if !ok {
				continue
			}

			// On peer close both channels fire so any blocked waiter
			// retries its syscall and observes the EOF or error.
			if ev.Readable || ev.Closed {
				notify(c.readable)
			}
			if ev.Writable || ev.Closed {
				notify(c.writable)
			}
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// acceptConns drains the accept queue.
func (e *Engine) acceptConns(lfd int) {
	for {
		nfd, _, err := unix.Accept(lfd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			log.Printf("accept error: %v", err)
			return
		}

		if int(e.stats.ActiveConns.Load()) >= e.MaxConns {
			unix.Close(nfd)
			continue
		}

		if err := e.registerConn(nfd); err != nil {
			unix.Close(nfd)
		}
	}
}

// registerConn configures a socket and starts its processor goroutine.
// Also the entry point for sockets handed back by a handler via AdoptFD.
func (e *Engine) registerConn(nfd int) error {
	if err := unix.SetNonblock(nfd, true); err != nil {
		return err
	}
	unix.CloseOnExec(nfd)
	unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	unix.SetsockoptInt(nfd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)

	c := e.connPool.Get().(*conn)
	c.fd = nfd
	c.readable = make(chan struct{}, 1)
	c.writable = make(chan struct{}, 1)
	c.closed = make(chan struct{})
	c.closeOnce = sync.Once{}
	c.touch()

	if err := e.poller.Add(nfd); err != nil {
		e.connPool.Put(c)
		return err
	}

	e.connMu.Lock()
	e.conns[nfd] = c
	e.connMu.Unlock()

	e.stats.AcceptedConns.Add(1)
	e.stats.ActiveConns.Add(1)

	go e.serveConn(c)
	return nil
}

// serveConn runs the per-connection request loop until the peer goes away,
// then releases everything back to the pools.
func (e *Engine) serveConn(c *conn) {
	rb := http.NewReadBuffer(e.bytePool.Get(4096))
	ctx := http.NewContext(rb, e.reader(c), e.writer(c), e.vectorWriter(c), e.adoptFD, e.ServerName)

	ctx.Serve(e.dispatch)

	e.closeConn(c)
	e.bytePool.Put(rb.Bytes())
	e.connPool.Put(c)
}

// closeConn tears the socket down once, no matter who noticed death first.
// The conn object itself goes back to the pool in serveConn, after its
// goroutine can no longer touch it.
func (e *Engine) closeConn(c *conn) {
	c.closeOnce.Do(func() {
		close(c.closed)

		e.connMu.Lock()
		delete(e.conns, c.fd)
		e.connMu.Unlock()

		e.poller.Remove(c.fd)
		unix.Close(c.fd)
		e.stats.ActiveConns.Add(-1)
	})
}

// sweepIdleConns drops keep-alive connections idle past the timeout.
func (e *Engine) sweepIdleConns() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		deadline := time.Now().Add(-e.IdleTimeout).UnixNano()

		e.connMu.RLock()
		var idle []*conn
		for _, c := range e.conns {
			if c.lastActive.Load() < deadline {
				idle = append(idle, c)
			}
		}
		e.connMu.RUnlock()

		for _, c := range idle {
			e.closeConn(c)
		}
	}
}

// adoptFD lets a handler hand a new socket back to the loop, e.g. after a
// protocol upgrade negotiated over an existing connection.
func (e *Engine) adoptFD(fd int) {
	if err := e.registerConn(fd); err != nil {
		log.Printf("adopt fd %d: %v", fd, err)
		unix.Close(fd)
	}
}

// dispatch routes one parsed request through the middleware pipeline.
func (e *Engine) dispatch(ctx *http.Context) error {
	e.stats.Requests.Add(1)
	defer e.stats.Responses.Add(1)

	h := e.router.Find(ctx.Method(), ctx.Path(), ctx.SetParam)
	if h == nil {
		return http.NotFound("Not found.")
	}
	return e.pipeline.Run(ctx, h)
}

// reader builds the read closure injected into the HTTP core. It returns 0
// on peer close or hard error; on EAGAIN it parks the goroutine until the
// poller signals readability.
func (e *Engine) reader(c *conn) http.ReadFn {
	return func(p []byte) int {
		for {
			n, err := unix.Read(c.fd, p)
			if n > 0 {
				e.stats.BytesIn.Add(uint64(n))
				c.touch()
				return n
			}
			if n == 0 && err == nil {
				return 0 // EOF
			}
			switch err {
			case unix.EAGAIN:
				select {
				case <-c.readable:
				case <-c.closed:
					return 0
				}
			case unix.EINTR:
			default:
				return 0
			}
		}
	}
}

// writer builds the write closure. A nil slice is the cooperative yield: it
// blocks until the socket is writable and sends nothing.
func (e *Engine) writer(c *conn) http.WriteFn {
	return func(p []byte) bool {
		if len(p) == 0 {
			return e.waitWritable(c)
		}
		for len(p) > 0 {
			n, err := unix.Write(c.fd, p)
			if n > 0 {
				e.stats.BytesOut.Add(uint64(n))
				p = p[n:]
				continue
			}
			switch err {
			case unix.EAGAIN:
				if !e.waitWritable(c) {
					return false
				}
			case unix.EINTR:
			default:
				return false
			}
		}
		c.touch()
		return true
	}
}

// vectorWriter builds the gathered-write closure used for large response
// bodies: headers and payload go out in one writev, retried across partial
// writes and EAGAIN yields.
func (e *Engine) vectorWriter(c *conn) http.WritevFn {
	return func(bufs ...[]byte) bool {
		for len(bufs) > 0 {
			n, err := unix.Writev(c.fd, bufs)
			if n > 0 {
				e.stats.BytesOut.Add(uint64(n))
				bufs = consume(bufs, n)
				continue
			}
			switch err {
			case unix.EAGAIN:
				if !e.waitWritable(c) {
					return false
				}
			case unix.EINTR:
			default:
				return false
			}
		}
		c.touch()
		return true
	}
}

// consume drops n written bytes off the front of an iovec.
func consume(bufs [][]byte, n int) [][]byte {
	for len(bufs) > 0 && n >= len(bufs[0]) {
		n -= len(bufs[0])
		bufs = bufs[1:]
	}
	if len(bufs) > 0 && n > 0 {
		bufs[0] = bufs[0][n:]
	}
	return bufs
}

// waitWritable switches the connection to read+write interest and parks the
// goroutine until the poller reports the socket writable.
func (e *Engine) waitWritable(c *conn) bool {
	if err := e.poller.ModReadWrite(c.fd); err != nil {
		return false
	}
	defer e.poller.ModRead(c.fd)

	select {
	case <-c.writable:
		return true
	case <-c.closed:
		return false
	}
}
