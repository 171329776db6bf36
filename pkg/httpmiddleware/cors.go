package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware behaviour.
type CORSConfig struct {
	// AllowOrigin is the Access-Control-Allow-Origin value. Defaults to "*".
	AllowOrigin string

	// AllowMethods lists the HTTP methods clients may use in actual requests.
	// Defaults to "GET, POST, OPTIONS" when empty.
	AllowMethods []string

	// AllowHeaders lists the request headers clients may send. Defaults to
	// "Authorization, Content-Type" when empty.
	AllowHeaders []string

	// MaxAge indicates how long (in seconds) preflight results can be cached.
	// A zero value omits the header.
	MaxAge int
}

// CORS returns a middleware implementing the storefront's permissive
// cross-origin policy: the allow headers are attached to every response,
// including error responses, and preflight OPTIONS requests are answered
// directly with 204.
func CORS(cfg CORSConfig) Middleware {
	origin := cfg.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	if methods == "" {
		methods = "GET, POST, OPTIONS"
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")
	if headers == "" {
		headers = "Authorization, Content-Type"
	}
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Headers", headers)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
