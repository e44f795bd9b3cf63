package resilience

// Kind is the stable taxonomy of reliability-operation outcomes reported by
// the retry policy, circuit breaker, connection pool, and connection
// manager.
type Kind string

const (
	// KindNone indicates no error: the operation succeeded.
	KindNone Kind = "NONE"
	// KindCircuitOpen indicates the circuit breaker rejected the call fast.
	KindCircuitOpen Kind = "CIRCUIT_OPEN"
	// KindMaxRetriesExceeded indicates every retry attempt failed.
	KindMaxRetriesExceeded Kind = "MAX_RETRIES_EXCEEDED"
	// KindTimeout indicates an operation exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"
	// KindInvalidConfig indicates a reliability component was configured
	// with an inconsistent or out-of-range value.
	KindInvalidConfig Kind = "INVALID_CONFIG"
	// KindCancelled indicates the caller's context was cancelled.
	KindCancelled Kind = "CANCELLED"
	// KindConnectionFailed indicates no usable connection could be
	// acquired or health/breaker state preemptively rejected the send.
	KindConnectionFailed Kind = "CONNECTION_FAILED"
)

// ReliabilityError is the error type returned by every component in the IPC
// reliability stack. Its Kind is stable and intended for programmatic
// dispatch; Err (if present) carries the underlying cause.
type ReliabilityError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the error message with its kind prefix.
func (e *ReliabilityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

// Unwrap returns the underlying error for error chain traversal.
func (e *ReliabilityError) Unwrap() error { return e.Err }

// Is implements errors.Is matching by comparing Kind.
func (e *ReliabilityError) Is(target error) bool {
	t, ok := target.(*ReliabilityError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, message string, cause error) *ReliabilityError {
	return &ReliabilityError{Kind: kind, Message: message, Err: cause}
}

// Sentinel errors for comparison using errors.Is. Their Err field is always
// nil; use the New* constructors to attach a cause.
var (
	ErrCircuitOpen        = &ReliabilityError{Kind: KindCircuitOpen, Message: "circuit breaker is open"}
	ErrMaxRetriesExceeded = &ReliabilityError{Kind: KindMaxRetriesExceeded, Message: "maximum retry attempts exceeded"}
	ErrTimeout            = &ReliabilityError{Kind: KindTimeout, Message: "operation timed out"}
	ErrInvalidConfig      = &ReliabilityError{Kind: KindInvalidConfig, Message: "invalid reliability configuration"}
	ErrCancelled          = &ReliabilityError{Kind: KindCancelled, Message: "operation cancelled"}
	ErrConnectionFailed   = &ReliabilityError{Kind: KindConnectionFailed, Message: "connection unavailable"}
)

func NewCircuitOpenError(cause error) error {
	return newError(KindCircuitOpen, "circuit breaker is open", cause)
}

func NewMaxRetriesExceededError(cause error) error {
	return newError(KindMaxRetriesExceeded, "maximum retry attempts exceeded", cause)
}

func NewTimeoutError(cause error) error {
	return newError(KindTimeout, "operation timed out", cause)
}

func NewInvalidConfigError(message string) error {
	return newError(KindInvalidConfig, message, nil)
}

func NewCancelledError(cause error) error {
	return newError(KindCancelled, "operation cancelled", cause)
}

func NewConnectionFailedError(cause error) error {
	return newError(KindConnectionFailed, "connection unavailable", cause)
}
