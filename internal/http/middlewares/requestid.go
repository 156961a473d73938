package middlewares

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

const RequestIdHeader = "X-Request-Id"

type requestIdKey struct{}

// RequestIdFromContext returns the id assigned by the request id middleware or
// an empty string.
func RequestIdFromContext(ctx context.Context) string {
	requestId, _ := ctx.Value(requestIdKey{}).(string)
	return requestId
}

func MakeRequestIdMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := ulid.Make().String()
		w.Header().Set(RequestIdHeader, requestId)
		ctx := context.WithValue(r.Context(), requestIdKey{}, requestId)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
