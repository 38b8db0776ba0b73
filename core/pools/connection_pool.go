package pools

import (
	"sync"
	"sync/atomic"
)

// Resettable objects wipe their per-connection state before going back to
// the pool.
type Resettable interface {
	Reset()
}

// ConnectionPool recycles per-connection state objects across accepts, so a
// busy listener does not allocate for every short-lived connection.
type ConnectionPool struct {
	pool sync.Pool
	gets atomic.Uint64
	puts atomic.Uint64
}

// NewConnectionPool creates a connection pool producing objects with newFunc.
func NewConnectionPool(newFunc func() any) *ConnectionPool {
	cp := &ConnectionPool{}
	cp.pool.New = newFunc
	return cp
}

// Get retrieves an object from the pool.
func (cp *ConnectionPool) Get() any {
	cp.gets.Add(1)
	return cp.pool.Get()
}

// Put resets the object and returns it to the pool.
func (cp *ConnectionPool) Put(obj any) {
	if r, ok := obj.(Resettable); ok {
		r.Reset()
	}
	cp.puts.Add(1)
	cp.pool.Put(obj)
}

// Stats returns the pool's get/put counters.
func (cp *ConnectionPool) Stats() (gets, puts uint64) {
	return cp.gets.Load(), cp.puts.Load()
}
