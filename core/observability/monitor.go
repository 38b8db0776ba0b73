package observability

import "sync/atomic"

// ServerStats counts connections, requests and traffic with atomics; the hot
// path pays one uncontended add per event.
type ServerStats struct {
	AcceptedConns atomic.Uint64
	ActiveConns   atomic.Int64
	Requests      atomic.Uint64
	Responses     atomic.Uint64
	BytesIn       atomic.Uint64
	BytesOut      atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	AcceptedConns uint64
	ActiveConns   int64
	Requests      uint64
	Responses     uint64
	BytesIn       uint64
	BytesOut      uint64
}

// Snapshot returns a consistent-enough copy for logging and health
// endpoints; counters are read individually, not atomically as a set.
func (s *ServerStats) Snapshot() Snapshot {
	return Snapshot{
		AcceptedConns: s.AcceptedConns.Load(),
		ActiveConns:   s.ActiveConns.Load(),
		Requests:      s.Requests.Load(),
		Responses:     s.Responses.Load(),
		BytesIn:       s.BytesIn.Load(),
		BytesOut:      s.BytesOut.Load(),
	}
}
