package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
)

// CORSPolicy defines the CORS headers to emit for matching origins. An origin entry may be "*"
// or carry a leading wildcard label, e.g. "https://*.example.com".
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// CORSPolicyFromConfig reads the CORS_* keys. The booking widget is embedded on the host's own
// site, so origins are deployment specific and default to none.
func CORSPolicyFromConfig() (CORSPolicy, error) {
	maxAge, err := config.Duration("CORS_MAX_AGE", 10*time.Minute)
	if err != nil {
		return CORSPolicy{}, err
	}
	return CORSPolicy{
		AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
		AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS"),
		AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,Idempotency-Key,"+RequestIDHeader),
		ExposedHeaders:   config.List("CORS_EXPOSED_HEADERS", RequestIDHeader+",Retry-After,X-RateLimit-Limit,X-RateLimit-Remaining"),
		AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           maxAge,
	}, nil
}

// corsHeaders is the precomputed response header set for an allowed origin.
type corsHeaders struct {
	methods     string
	headers     string
	exposed     string
	maxAge      string
	credentials bool
}

func (c corsHeaders) apply(h http.Header, origin string, preflight bool) {
	h.Set("Access-Control-Allow-Origin", origin)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Add("Vary", "Origin")
	if !preflight {
		if c.exposed != "" {
			h.Set("Access-Control-Expose-Headers", c.exposed)
		}
		return
	}
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
}

// WithCORS answers preflights for allowed origins and decorates their other responses.
// With no allowed origins it is a no-op.
func WithCORS(cfg CORSPolicy) Middleware {
	allowed := normalizeList(cfg.AllowedOrigins)
	if len(allowed) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	set := corsHeaders{
		methods:     strings.Join(normalizeList(cfg.AllowedMethods), ", "),
		headers:     strings.Join(normalizeList(cfg.AllowedHeaders), ", "),
		exposed:     strings.Join(normalizeList(cfg.ExposedHeaders), ", "),
		credentials: cfg.AllowCredentials,
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		set.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowOrigin, ok := matchOrigin(origin, allowed, cfg.AllowCredentials)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			set.apply(w.Header(), allowOrigin, preflight)
			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// matchOrigin returns the value for Access-Control-Allow-Origin. A bare "*" cannot be combined
// with credentials, so the request origin is echoed instead.
func matchOrigin(origin string, allowed []string, allowCredentials bool) (string, bool) {
	for _, candidate := range allowed {
		switch {
		case candidate == "*":
			if allowCredentials {
				return origin, true
			}
			return "*", true
		case strings.EqualFold(candidate, origin):
			return origin, true
		case wildcardMatch(candidate, origin):
			return origin, true
		}
	}
	return "", false
}

// wildcardMatch handles "scheme://*.domain" entries. The wildcard covers one or more labels but
// never the bare domain.
func wildcardMatch(pattern, origin string) bool {
	scheme, host, ok := strings.Cut(pattern, "://*.")
	if !ok {
		return false
	}
	prefix := scheme + "://"
	if len(origin) <= len(prefix) || !strings.EqualFold(origin[:len(prefix)], prefix) {
		return false
	}
	return strings.HasSuffix(strings.ToLower(origin[len(prefix):]), "."+strings.ToLower(host))
}
