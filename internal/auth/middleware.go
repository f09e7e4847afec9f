package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/campushr/campushr/internal/platform/httpx"
	"github.com/campushr/campushr/internal/shared"
)

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Resolve(ctx context.Context, token string) (shared.Identity, error)
}

// Authenticate resolves the Authorization header and stores the caller
// identity in the request context. Requests without a valid token get
// a 401.
func Authenticate(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			identity, err := verifier.Resolve(r.Context(), token)
			if err != nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), &identity)))
		})
	}
}

// RequireAdmin rejects non-administrator callers.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := shared.IdentityFromContext(r.Context())
		if caller == nil {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		if !caller.Admin {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
