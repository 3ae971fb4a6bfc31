package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/tecbunny/tecbunny-backend/pkg/config"
)

// CORS returns middleware that applies the configured origin policy.
func CORS(cfg config.AppConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
