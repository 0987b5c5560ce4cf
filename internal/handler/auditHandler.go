package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/logic/auditlog"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

func AuditHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AuditQueryRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := auditlog.NewQueryAuditLogic(r.Context(), svcCtx)
		resp, err := l.QueryAudit(&req)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func AuditSearchHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AuditSearchRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := auditlog.NewSearchAuditLogic(r.Context(), svcCtx)
		resp, err := l.SearchAudit(&req)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func ResetRateLimitHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ResetRateLimitRequest
		if err := httpx.Parse(r, &req); err != nil {
			errorx.Write(w, r, errorx.InvalidRequest(err.Error()))
			return
		}

		l := auditlog.NewResetRateLimitLogic(r.Context(), svcCtx)
		resp, err := l.ResetRateLimit(&req)
		if err != nil {
			errorx.Write(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
