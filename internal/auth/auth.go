package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

var (
	ErrNoAuthHeader  = errors.New("authorization header not found")
	ErrInvalidApiKey = errors.New("invalid API key")
)

func ParseApiKey(r *http.Request) (string, error) {

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoAuthHeader
	}

	var apiKey string
	n, err := fmt.Sscanf(authHeader, "ApiKey %s", &apiKey)
	if n != 1 || err != nil {
		return "", ErrNoAuthHeader
	}

	return apiKey, nil
}

// RequireApiKey rejects requests that do not carry the configured key. An empty
// key disables the check.
func RequireApiKey(apiKey string, next http.HandlerFunc) http.HandlerFunc {
	if apiKey == "" {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		key, err := ParseApiKey(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, "Couldn't find api key", err)
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			slog.Warn("rejected request with an invalid api key", "path", r.URL.Path)
			utils.RespondWithError(w, http.StatusForbidden, "Invalid api key", ErrInvalidApiKey)
			return
		}

		next(w, r)
	}
}

// RequireApiKeyForWrites guards every request that is not a GET, HEAD or OPTIONS.
func RequireApiKeyForWrites(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}

	guarded := RequireApiKey(apiKey, next.ServeHTTP)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			guarded(w, r)
		}
	})
}
