package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/logic/keys"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

func UploadKeyHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.UploadKeyRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := keys.NewUploadKeyLogic(r.Context(), svcCtx)
		resp, err := l.UploadKey(&req)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}
		httpx.WriteJsonCtx(r.Context(), w, http.StatusCreated, resp)
	}
}
