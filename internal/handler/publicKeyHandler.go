package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/logic/keys"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

const pgpKeysContentType = "application/pgp-keys"

func PublicKeyHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PublicKeyRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := keys.NewPublicKeyLogic(r.Context(), svcCtx)
		armored, err := l.PublicKey(req.KeyID)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}

		w.Header().Set("Content-Type", pgpKeysContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(armored))
	}
}
