package errorx

import (
	"net/http"
	"strconv"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/reqctx"
)

type envelope struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RequestID  string `json:"requestId,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// Write renders the error envelope. Unknown errors become a generic 500 with
// the request id for correlation; causes are logged, never sent.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	e := From(err)
	ctx := r.Context()

	if cause := e.Unwrap(); cause != nil {
		logx.WithContext(ctx).Errorf("%s: %v", e.Code, cause)
	}

	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	if e.Code == CodeRateLimited {
		w.Header().Set("X-RateLimit-Remaining", "0")
		if e.ResetAt > 0 {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(e.ResetAt/1000, 10))
		}
	}

	httpx.WriteJsonCtx(ctx, w, e.Status, envelope{
		Error:      e.Message,
		Code:       e.Code,
		RequestID:  reqctx.RequestID(ctx),
		RetryAfter: e.RetryAfter,
	})
}
