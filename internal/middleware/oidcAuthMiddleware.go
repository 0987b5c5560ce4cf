package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kjanat/gpg-signing-service/domain/oidc"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/reqctx"
)

// OIDCAuthMiddleware validates the Bearer token through the full verifier
// pipeline and attaches the validated claims to the request context.
type OIDCAuthMiddleware struct {
	verifier *oidc.Verifier
}

func NewOIDCAuthMiddleware(verifier *oidc.Verifier) *OIDCAuthMiddleware {
	return &OIDCAuthMiddleware{verifier: verifier}
}

func (m *OIDCAuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			errorx.Write(w, r, errorx.AuthMissing(err.Error()))
			return
		}

		claims, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			errorx.Write(w, r, errorx.AuthInvalid(err.Error()))
			return
		}

		next(w, r.WithContext(reqctx.WithClaims(r.Context(), claims)))
	}
}

// ExtractBearerToken pulls the token out of an Authorization header.
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("authorization header format must be Bearer {token}")
	}

	return parts[1], nil
}
