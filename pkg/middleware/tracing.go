package middleware

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/tracing"
)

// Trace opens a root span per request, keyed by the request ID, and logs
// the span tree for requests slower than slow. It must run inside
// RequestID.
func Trace(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, GetRequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
			span.End()
			span.LogIfSlow(slow)
		})
	}
}
