package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

// Limiter decides whether a client key may make another request.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests beyond the per-client budget with 429. Clients
// are keyed by the connection's remote address. X-Forwarded-For is read only
// when that address is one of trustedProxies, and then the client is the
// rightmost hop that is not itself a trusted proxy. Health and metrics
// endpoints are exempt.
func RateLimit(limiter Limiter, trustedProxies ...netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(clientKey(r, trustedProxies)) {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(apperrors.HTTPStatusCode(apperrors.ErrRateLimited))
				json.NewEncoder(w).Encode(map[string]string{"error": apperrors.ErrRateLimited.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(peer, trusted) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return host
		}
		if !isTrusted(hop, trusted) {
			return hop.Unmap().String()
		}
	}
	return host
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
