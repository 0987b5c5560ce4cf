package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/logic/keys"
	"github.com/kjanat/gpg-signing-service/internal/svc"
)

func ListKeysHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := keys.NewListKeysLogic(r.Context(), svcCtx)
		resp, err := l.ListKeys()
		if err != nil {
			errorx.Write(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
