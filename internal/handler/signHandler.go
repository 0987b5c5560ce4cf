package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/logic/sign"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

const maxCommitBytes = 1 << 20

func SignHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			media, _, err := mime.ParseMediaType(ct)
			if err != nil || (!strings.HasPrefix(media, "text/") && media != "application/octet-stream") {
				errorx.Write(w, r, errorx.New(http.StatusUnsupportedMediaType,
					errorx.CodeUnsupportedMediaType, "Body must be text/plain"))
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxCommitBytes))
		if err != nil {
			errorx.Write(w, r, errorx.InvalidRequest("Failed to read request body"))
			return
		}

		var req types.SignRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := sign.NewSignLogic(r.Context(), svcCtx)
		resp, err := l.Sign(body, req.KeyID)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(resp.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resp.ResetAt/1000, 10))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(resp.Signature))
	}
}
