package middlewares

import (
	"net/http"
)

// MakeBodyLimitMiddleware caps the request body at maxBytes. Reads beyond the
// limit fail with *http.MaxBytesError.
func MakeBodyLimitMiddleware(maxBytes int64, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBytes {
			w.Header().Set("Connection", "close")
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		h.ServeHTTP(w, r)
	})
}
