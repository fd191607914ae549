package middleware

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsMaxAge       = "86400"
	anyOrigin        = "*"
)

// corsAllowHeaders lists the request headers browser clients may send: the bearer token, the
// bare access token used by older clients and a caller supplied request id.
var corsAllowHeaders = strings.Join([]string{
	"Authorization", "Content-Type", "Accept", http.CanonicalHeaderKey(AccessTokenHeader), chimw.RequestIDHeader,
}, ", ")

// originSet matches request origins against CORS_ALLOWED_ORIGINS. "*" admits any origin.
type originSet struct {
	any     bool
	origins map[string]struct{}
}

func newOriginSet(allowed []string) originSet {
	s := originSet{origins: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case anyOrigin:
			s.any = true
		default:
			s.origins[o] = struct{}{}
		}
	}
	return s
}

func (s originSet) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if s.any {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}

// CORS adds CORS headers for allowed origins and answers OPTIONS preflight requests with 204.
// The request id header is exposed so browser clients can quote it when reporting errors.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	origins := newOriginSet(allowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		header := w.Header()
		header.Add("Vary", "Origin")
		if origins.allows(origin) {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Expose-Headers", chimw.RequestIDHeader)
		}

		if r.Method == http.MethodOptions {
			if origins.allows(origin) {
				header.Set("Access-Control-Allow-Methods", corsAllowMethods)
				header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				header.Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
