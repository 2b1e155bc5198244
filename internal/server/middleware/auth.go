package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/faucetdb/codespace/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the authenticated user making the request.
type Principal struct {
	UserID string
	Email  string
}

// TokenValidator checks a bearer access token. *service.AuthService
// implements it.
type TokenValidator interface {
	ValidateJWT(ctx context.Context, token string) (*service.Principal, error)
}

// Authenticate returns an HTTP middleware that requires a valid JWT bearer
// token in the Authorization header. On success, a Principal is attached to
// the request context. On failure, a 401 JSON error response is returned.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return authenticate(v, true)
}

// OptionalAuthenticate attaches a Principal when a bearer token is present
// and lets anonymous requests through. A token that is present but invalid
// is still rejected with 401.
func OptionalAuthenticate(v TokenValidator) func(http.Handler) http.Handler {
	return authenticate(v, false)
}

func authenticate(v TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				if required {
					writeAuthError(w, http.StatusUnauthorized,
						"Authentication credentials were not provided.")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			p, err := v.ValidateJWT(r.Context(), token)
			if err != nil {
				msg := "Given token not valid for any token type"
				if errors.Is(err, service.ErrTokenExpired) {
					msg = "Token is expired"
				}
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			noteUser(r.Context(), p.UserID)
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, &Principal{
				UserID: p.UserID,
				Email:  p.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnonymous rejects requests that carry a principal with 403. It
// must be used after OptionalAuthenticate in the middleware chain.
func RequireAnonymous() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetPrincipal(r.Context()) != nil {
				writeAuthError(w, http.StatusForbidden, "Already authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + strconv.Itoa(status) + `,"message":"` + message + `"}}`))
}
