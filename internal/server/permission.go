// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/files-processor/pkg/types"
)

// permissionMiddleware returns the access policy for processing routes.
func permissionMiddleware(cfg types.ServerConfig) (func(http.Handler) http.Handler, error) {
	switch cfg.Permission {
	case types.PermissionAllowAll:
		return func(next http.Handler) http.Handler { return next }, nil
	case types.PermissionToken:
		if cfg.Token == "" {
			return nil, fmt.Errorf("server: permission %q requires a token", cfg.Permission)
		}
		return requireToken(cfg.Token), nil
	default:
		return nil, fmt.Errorf("server: unknown permission %q (want %q or %q)",
			cfg.Permission, types.PermissionAllowAll, types.PermissionToken)
	}
}

// requireToken rejects requests without a bearer token (401) or with a
// different one (403).
func requireToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="files-processor"`)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeError(w, http.StatusForbidden, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
