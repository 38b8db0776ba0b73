package core

import "time"

const (
	// DefaultServerName is the Server header token when none is configured.
	DefaultServerName = "zerohttp"

	// DefaultIdleTimeout is how long a keep-alive connection may sit
	// between requests before the sweeper drops it.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultMaxConns caps concurrently open connections; accepts beyond
	// it are closed immediately.
	DefaultMaxConns = 100000

	// pollTimeoutMs bounds one poller wait so the loop stays responsive
	// to new registrations.
	pollTimeoutMs = 100
)
