package api

import (
	"net/http"
	"strings"

	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
)

type SecurityConfig struct {
	AllowedOrigins []string        // exact match; "*" not recommended
	APIKey         string          // optional; if set, requires X-API-Key
	RequireKeyFor  map[string]bool // path -> require key
}

func SecurityMiddleware(cfg SecurityConfig, next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Accept,X-API-Key")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		if cfg.APIKey != "" && cfg.RequireKeyFor[r.URL.Path] {
			if !vcrypto.ConstantTimeEqualString(r.Header.Get("X-API-Key"), cfg.APIKey) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
