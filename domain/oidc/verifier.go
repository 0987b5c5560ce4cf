package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kjanat/gpg-signing-service/domain/jwks"
)

// Verification failure reasons. Each maps to AUTH_INVALID on the wire; the
// message distinguishes the failing pipeline step.
var (
	ErrMalformed        = errors.New("Malformed token")
	ErrAlgNotAllowed    = errors.New("Token algorithm not allowed")
	ErrIssuerNotAllowed = errors.New("Token issuer not allowed")
	ErrTokenExpired     = errors.New("Token expired")
	ErrTokenNotYetValid = errors.New("Token not yet valid")
	ErrAudienceMismatch = errors.New("Token audience mismatch")
	ErrKeyNotFound      = errors.New("Signing key not found")
	ErrInvalidSignature = errors.New("Token signature invalid")
)

// clockSkew is the tolerance applied to exp and nbf checks.
const clockSkew = 60 * time.Second

var allowedAlgorithms = []string{"RS256", "RS384", "RS512", "ES256", "ES384"}

// ValidatedClaims are the claims of a token that passed the full pipeline.
// Construct them only through Verifier.Verify.
type ValidatedClaims struct {
	Issuer   string
	Subject  string
	Audience []string
}

// Identity is the rate-limit and audit correlation key for these claims.
func (c *ValidatedClaims) Identity() string {
	return c.Issuer + ":" + c.Subject
}

// Verifier validates bearer tokens: shape, algorithm whitelist, issuer
// allow-list, timing with skew, audience, key resolution through the JWKS
// cache, and finally the signature.
type Verifier struct {
	keys           *jwks.Cache
	allowedIssuers map[string]bool
	audience       string
	parser         *jwt.Parser
	now            func() time.Time
}

func NewVerifier(keys *jwks.Cache, allowedIssuers []string, audience string) *Verifier {
	issuers := make(map[string]bool, len(allowedIssuers))
	for _, iss := range allowedIssuers {
		if iss = strings.TrimSpace(iss); iss != "" {
			issuers[iss] = true
		}
	}

	return &Verifier{
		keys:           keys,
		allowedIssuers: issuers,
		audience:       audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods(allowedAlgorithms),
			// Timing and audience are validated by hand below so that the
			// skew window and failure reasons match the service contract.
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}
}

// Verify runs the full pipeline over a raw bearer token.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*ValidatedClaims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := v.parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		return v.resolveKey(ctx, t, claims)
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	return &ValidatedClaims{
		Issuer:   claims.Issuer,
		Subject:  claims.Subject,
		Audience: claims.Audience,
	}, nil
}

// resolveKey is the parser keyfunc. It runs after shape and algorithm checks
// and before signature verification, so the claim checks here keep the
// pipeline order: issuer, timing, audience, then key resolution.
func (v *Verifier) resolveKey(ctx context.Context, t *jwt.Token, claims *jwt.RegisteredClaims) (interface{}, error) {
	if !v.allowedIssuers[claims.Issuer] {
		return nil, ErrIssuerNotAllowed
	}

	now := v.now()
	if claims.NotBefore != nil && claims.NotBefore.Time.After(now.Add(clockSkew)) {
		return nil, ErrTokenNotYetValid
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now.Add(-clockSkew)) {
		return nil, ErrTokenExpired
	}

	if !audienceContains(claims.Audience, v.audience) {
		return nil, ErrAudienceMismatch
	}

	kid, _ := t.Header["kid"].(string)
	set, err := v.keys.Lookup(ctx, claims.Issuer, kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}

	key, ok := set.Lookup(kid)
	if !ok {
		return nil, ErrKeyNotFound
	}

	return key.PublicKey()
}

func audienceContains(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}

// mapParseError reduces jwt parser errors to the pipeline's stable reasons.
func mapParseError(err error) error {
	for _, known := range []error{
		ErrIssuerNotAllowed, ErrTokenExpired, ErrTokenNotYetValid,
		ErrAudienceMismatch, ErrKeyNotFound, ErrAlgNotAllowed, ErrMalformed,
	} {
		if errors.Is(err, known) {
			return known
		}
	}

	switch {
	// The parser reports a non-whitelisted alg as an invalid signature; keep
	// the more specific reason.
	case errors.Is(err, jwt.ErrTokenSignatureInvalid) && strings.Contains(err.Error(), "signing method"):
		return ErrAlgNotAllowed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}
