// Package resilience implements the module host's IPC reliability stack:
// retry policy (§4.10), circuit breaker (§4.11), health checker (§4.12),
// connection pool (§4.13), and the connection manager that composes all
// four per registered endpoint (§4.14).
//
// Retry wraps github.com/sethvargo/go-retry with the four backoff
// strategies the spec requires (CONSTANT, LINEAR, EXPONENTIAL,
// EXPONENTIAL_JITTER). Circuit breaker wraps github.com/sony/gobreaker with
// a rolling-window failure-rate policy and manual force-open/force-half-open
// operations the upstream library does not provide on its own. The
// connection pool is built on github.com/jackc/puddle/v2, the generic
// resource pool extracted from pgxpool, reused here for arbitrary pluggable
// transports instead of database connections.
//
// Every operation reports a *ReliabilityError with a stable Kind
// (NONE/CIRCUIT_OPEN/MAX_RETRIES_EXCEEDED/TIMEOUT/INVALID_CONFIG/CANCELLED/
// CONNECTION_FAILED) for programmatic dispatch.
package resilience
