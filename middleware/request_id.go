package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header used to propagate and echo request IDs
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a UUID (or adopts the caller's) and makes
// it available through the request context and the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
