package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/iruldev/modhost/internal/interface/http/response"
)

// BodyLimit enforces a maximum request body size, returning a 413 Envelope
// response when exceeded instead of letting the handler read an unbounded
// body. maxBytes<=0 disables the limit.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				tooLarge(w, r)
				return
			}

			limited := http.MaxBytesReader(w, r.Body, maxBytes)
			data, err := io.ReadAll(limited)
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					tooLarge(w, r)
					return
				}
				response.InternalServerErrorCtx(w, r.Context(), "failed to read request body")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(data))
			next.ServeHTTP(w, r)
		})
	}
}

func tooLarge(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	response.ErrorEnvelope(w, r.Context(), http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request body too large")
}
