package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kjanat/gpg-signing-service/internal/reqctx"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware echoes a caller-supplied X-Request-ID or generates a
// fresh one, propagating it through the request context and the response.
func RequestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		next(w, r.WithContext(reqctx.WithRequestID(r.Context(), requestID)))
	}
}
