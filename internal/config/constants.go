package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Live relay timings
const (
	// RejectionHangupDelay gives the agent time to say goodbye after an
	// explicit rejection phrase before the leg is dropped.
	RejectionHangupDelay = 2 * time.Second

	// ContextualUpdateDelay covers flow bridges that auto-advance through
	// non-interactive nodes before the caller's first turn.
	ContextualUpdateDelay = 100 * time.Millisecond

	SendRetryAttempts = 3
	SendRetryDelay    = 50 * time.Millisecond
)

// Outbound customer webhook delivery
const (
	WebhookTimeout     = 10 * time.Second
	WebhookMaxAttempts = 3
)

// Completion webhook signatures older than this are rejected.
const SignatureMaxAge = 30 * time.Minute

// Background job intervals
const StaleCallSweepInterval = 5 * time.Minute

// Default per-user dial-out rate limit
const DialRateLimitPerMin = 30
