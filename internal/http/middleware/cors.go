package middleware

import (
	"net/http"
	"strings"
)

// corsPolicy is the browser access policy for the public booking pages,
// which are embedded on clinic sites.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   map[string]struct{}
}

var (
	bookingMethods = []string{http.MethodGet, http.MethodPost}
	bookingHeaders = []string{"Content-Type", "X-Request-ID"}
)

func (p corsPolicy) allowsOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORS answers preflights for the booking API and tags responses to listed
// origins. "*" in allowedOrigins echoes any origin. Preflights from unlisted
// origins or for methods the booking API does not serve get 403.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := corsPolicy{origins: map[string]struct{}{}, methods: map[string]struct{}{}}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			policy.anyOrigin = true
		default:
			policy.origins[origin] = struct{}{}
		}
	}
	for _, m := range bookingMethods {
		policy.methods[m] = struct{}{}
	}
	allowMethods := strings.Join(append([]string{http.MethodOptions}, bookingMethods...), ", ")
	allowHeaders := strings.Join(bookingHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			h := w.Header()
			h.Add("Vary", "Origin")

			requested := r.Header.Get("Access-Control-Request-Method")
			if r.Method == http.MethodOptions && origin != "" && requested != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				if _, ok := policy.methods[requested]; !ok || !policy.allowsOrigin(origin) {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", allowMethods)
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if policy.allowsOrigin(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
			}
			next.ServeHTTP(w, r)
		})
	}
}
