package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/domain/ratelimit"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
)

// AdminAuthMiddleware guards the admin surface: a per-client-IP token bucket
// (fail-closed), then a constant-time shared-secret comparison. A wrong token
// always gets the same fixed rejection body, whatever its length or prefix
// overlap; a missing or malformed Authorization header is answered with
// AUTH_MISSING instead.
type AdminAuthMiddleware struct {
	token   string
	limiter *ratelimit.Limiter
}

func NewAdminAuthMiddleware(token string, limiter *ratelimit.Limiter) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{token: token, limiter: limiter}
}

var timeNow = time.Now

type adminRejection struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (m *AdminAuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := m.limiter.Consume(r.Context(), "admin:"+clientIP(r))
		if err != nil {
			errorx.Write(w, r, errorx.RateLimitUnavailable().WithCause(err))
			return
		}
		if !res.Allowed {
			errorx.Write(w, r, errorx.RateLimited(res.RetryAfter(timeNow()), res.ResetAt))
			return
		}

		presented, err := ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			errorx.Write(w, r, errorx.AuthMissing(err.Error()))
			return
		}

		if m.token == "" || !SecureCompare(presented, m.token) {
			httpx.WriteJsonCtx(r.Context(), w, http.StatusUnauthorized, adminRejection{
				Error: "Invalid admin token",
				Code:  errorx.CodeAuthInvalid,
			})
			return
		}

		next(w, r)
	}
}

// SecureCompare reports whether a and b are equal without an early exit on
// length mismatch: both inputs are zero-padded to a common length before the
// constant-time byte comparison, and the length check is folded in with a
// constant-time AND.
func SecureCompare(a, b string) bool {
	ab, bb := []byte(a), []byte(b)

	n := len(ab)
	if len(bb) > n {
		n = len(bb)
	}
	pa := make([]byte, n)
	pb := make([]byte, n)
	copy(pa, ab)
	copy(pb, bb)

	bytesEqual := subtle.ConstantTimeCompare(pa, pb)
	lengthEqual := subtle.ConstantTimeEq(int32(len(ab)), int32(len(bb)))
	return bytesEqual&lengthEqual == 1
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
