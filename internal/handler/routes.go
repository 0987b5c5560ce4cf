package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"github.com/kjanat/gpg-signing-service/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/health",
				Handler: HealthHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/public-key",
				Handler: PublicKeyHandler(serverCtx),
			},
		},
	)

	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{serverCtx.OIDCAuth},
			[]rest.Route{
				{
					Method:  http.MethodPost,
					Path:    "/sign",
					Handler: SignHandler(serverCtx),
				},
			}...,
		),
	)

	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{serverCtx.AdminAuth},
			[]rest.Route{
				{
					Method:  http.MethodPost,
					Path:    "/admin/keys",
					Handler: UploadKeyHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/admin/keys",
					Handler: ListKeysHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/admin/keys/:keyId/public",
					Handler: AdminPublicKeyHandler(serverCtx),
				},
				{
					Method:  http.MethodDelete,
					Path:    "/admin/keys/:keyId",
					Handler: DeleteKeyHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/admin/audit",
					Handler: AuditHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/admin/audit/search",
					Handler: AuditSearchHandler(serverCtx),
				},
				{
					Method:  http.MethodDelete,
					Path:    "/admin/rate-limit/:identity",
					Handler: ResetRateLimitHandler(serverCtx),
				},
			}...,
		),
	)
}
