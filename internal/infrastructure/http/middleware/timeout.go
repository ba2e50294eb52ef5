package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds the context handed to API handlers. Database and
// queue calls made by the handler stop when the client would no longer
// receive the answer.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
