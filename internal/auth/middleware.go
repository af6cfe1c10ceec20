// Package auth guards the HTTP transport of the corpus server.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sha1n/relic-corpus/internal/config"
)

// APIKeyHeader carries an API key. "Authorization: Bearer <key>" is accepted too.
const APIKeyHeader = "X-API-Key"

// rejections counts refused requests by auth type and reason
var rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relic_corpus_auth_rejections_total",
	Help: "Requests refused by the auth middleware",
}, []string{"type", "reason"})

const (
	reasonMissing = "missing"
	reasonInvalid = "invalid"
)

// excludedPaths are paths that bypass authentication (e.g., health checks)
var excludedPaths = map[string]bool{
	"/health": true,
}

// isExcludedPath checks if the request path should bypass authentication
func isExcludedPath(path string) bool {
	return excludedPaths[path]
}

// NewMiddleware creates a new authentication middleware based on settings
func NewMiddleware(settings config.AuthSettings) (func(http.Handler) http.Handler, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return guard(config.AuthTypeBasic, basicAuthCheck(settings.Basic)), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return guard(config.AuthTypeAPIKey, apiKeyCheck(settings.APIKeys)), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// check inspects a request and returns "" when it is authorized, or the
// rejection reason.
type check func(r *http.Request) string

// guard wraps a check into a middleware. Excluded paths skip the check.
func guard(authType string, c check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcludedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if reason := c(r); reason != "" {
				rejections.WithLabelValues(authType, reason).Inc()
				if authType == config.AuthTypeBasic {
					w.Header().Set("WWW-Authenticate", `Basic realm="relic-corpus"`)
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func basicAuthCheck(settings config.BasicAuthSettings) check {
	wantUser := []byte(settings.Username)
	wantPass := []byte(settings.Password)
	return func(r *http.Request) string {
		user, pass, ok := r.BasicAuth()
		if !ok {
			return reasonMissing
		}
		userMatch := subtle.ConstantTimeCompare([]byte(user), wantUser) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), wantPass) == 1
		if !userMatch || !passMatch {
			return reasonInvalid
		}
		return ""
	}
}

func apiKeyCheck(apiKeys []string) check {
	keys := make([][]byte, len(apiKeys))
	for i, k := range apiKeys {
		keys[i] = []byte(k)
	}
	return func(r *http.Request) string {
		key := requestAPIKey(r)
		if key == "" {
			return reasonMissing
		}
		// every key is compared so timing does not reveal which one matched
		match := 0
		for _, valid := range keys {
			match |= subtle.ConstantTimeCompare([]byte(key), valid)
		}
		if match != 1 {
			return reasonInvalid
		}
		return ""
	}
}

func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
