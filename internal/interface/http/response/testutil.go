package response

// TestEnvelopeResponse is the Envelope structure for test assertions.
// Exported for use in middleware tests and other packages that need to
// verify Envelope format in responses.
type TestEnvelopeResponse struct {
	Data  interface{} `json:"data,omitempty"`
	Error *TestError  `json:"error,omitempty"`
	Meta  *TestMeta   `json:"meta,omitempty"`
}

// TestError represents the error field in an Envelope for test assertions.
type TestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// TestMeta represents the meta field in an Envelope for test assertions.
type TestMeta struct {
	TraceID string `json:"trace_id"`
}
