package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeaderPolicy is the fixed set of response headers for the JSON API.
type HeaderPolicy struct {
	Static map[string]string
	// HSTS is sent only on TLS connections. Zero disables it.
	HSTS time.Duration
}

// APIHeaderPolicy suits an API that never serves HTML.
func APIHeaderPolicy() HeaderPolicy {
	return HeaderPolicy{
		Static: map[string]string{
			"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
			"X-Content-Type-Options":  "nosniff",
			"X-Frame-Options":         "DENY",
			"Referrer-Policy":         "no-referrer",
			"Permissions-Policy":      "geolocation=(), microphone=(), camera=(), payment=()",
			// Handlers that want caching overwrite this.
			"Cache-Control": "no-store",
		},
		HSTS: 365 * 24 * time.Hour,
	}
}

func (p HeaderPolicy) Middleware(next http.Handler) http.Handler {
	hsts := ""
	if p.HSTS > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(p.HSTS/time.Second), 10) + "; includeSubDomains"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range p.Static {
			if v != "" {
				h.Set(k, v)
			}
		}
		if hsts != "" && r.TLS != nil {
			h.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}
