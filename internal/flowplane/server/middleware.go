package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/auth"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext carries the authenticated token's identity and granted scopes
// through a request, set by requireScopes and read by handlers that need the
// actor's token id for audit logging.
type AuthContext struct {
	TokenID string
	Scopes  []string
}

func authContextFrom(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(authContextKey).(*AuthContext)
	return ac
}

// requireScopes wraps a handler so every request must carry a bearer token
// authenticating to an active PersonalAccessToken holding every listed
// scope. OPTIONS requests bypass authentication per §4.H.
func (s *APIServer) requireScopes(scopes ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, s.logger, apierror.New(apierror.KindUnauthorized, "missing Authorization header"))
				return
			}
			secret, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || secret == "" {
				writeError(w, s.logger, apierror.New(apierror.KindUnauthorized, "malformed Authorization header"))
				return
			}

			token, err := s.tokens.Authenticate(r.Context(), secret)
			if err != nil {
				if errors.Is(err, auth.ErrTokenNotFound) {
					writeError(w, s.logger, apierror.New(apierror.KindUnauthorized, "token not found"))
					return
				}
				if errors.Is(err, repository.ErrConnectionFailed) {
					writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "auth backing store unavailable", err))
					return
				}
				writeError(w, s.logger, apierror.Wrap(apierror.KindInternal, "authentication failed", err))
				return
			}

			switch token.Effective() {
			case auth.StatusRevoked:
				writeError(w, s.logger, apierror.New(apierror.KindUnauthorized, "token is revoked"))
				return
			case auth.StatusExpired:
				writeError(w, s.logger, apierror.New(apierror.KindUnauthorized, "token is expired"))
				return
			}

			if err := auth.EnsureScopes(token.Scopes, scopes...); err != nil {
				writeError(w, s.logger, apierror.Wrap(apierror.KindForbidden, err.Error(), err))
				return
			}

			ac := &AuthContext{TokenID: token.ID, Scopes: token.Scopes}
			ctx := context.WithValue(r.Context(), authContextKey, ac)
			next(w, r.WithContext(ctx))
		}
	}
}
