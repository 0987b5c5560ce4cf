package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/logic/keys"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

func DeleteKeyHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.KeyPathRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := keys.NewDeleteKeyLogic(r.Context(), svcCtx)
		resp, err := l.DeleteKey(&req)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
