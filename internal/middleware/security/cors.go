package security

import (
	"net/http"
	"strings"
)

// DefaultAllowedHeaders are the request headers browser clients send.
const DefaultAllowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS answers preflight requests and stamps the allow headers on every
// response. An origin list containing "*" allows any origin.
type CORS struct {
	origins map[string]struct{}
	anyHost bool
	headers string
	methods string
}

func NewCORS(origins []string) *CORS {
	c := &CORS{
		origins: make(map[string]struct{}, len(origins)),
		headers: DefaultAllowedHeaders,
		methods: "GET, POST, PUT, DELETE, OPTIONS",
	}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			c.anyHost = true
			continue
		}
		if o != "" {
			c.origins[o] = struct{}{}
		}
	}
	return c
}

func (c *CORS) allowOrigin(origin string) string {
	if c.anyHost {
		return "*"
	}
	if _, ok := c.origins[origin]; ok {
		return origin
	}
	return ""
}

func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if allowed := c.allowOrigin(r.Header.Get("Origin")); allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Allow-Headers", c.headers)
			h.Set("Access-Control-Allow-Methods", c.methods)
			if allowed != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
