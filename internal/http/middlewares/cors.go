package middlewares

import (
	"net/http"

	"github.com/rs/cors"
)

// MakeCorsMiddleware allows browser clients from any origin to call the api.
// Preflight requests are answered here and never reach h.
func MakeCorsMiddleware(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIdHeader},
	}).Handler(h)
}
