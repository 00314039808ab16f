package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORS allows cross-origin calls from origin ("*" for any) and answers
// preflight requests without reaching next.
func NewCORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	c := cors.New(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler
}
