package auditlog

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

type SearchAuditLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSearchAuditLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SearchAuditLogic {
	return &SearchAuditLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SearchAuditLogic) SearchAudit(req *types.AuditSearchRequest) (*types.AuditSearchResponse, error) {
	if req.Q == "" {
		return nil, errorx.InvalidRequest("q is required")
	}
	if l.svcCtx.AuditSearcher == nil {
		return nil, errorx.New(503, errorx.CodeAuditError, "Audit search is not configured")
	}

	hits, err := l.svcCtx.AuditSearcher.Search(l.ctx, req.Q, req.Limit)
	if err != nil {
		return nil, errorx.Internal(errorx.CodeAuditError, "Audit search failed").WithCause(err)
	}

	return &types.AuditSearchResponse{Hits: hits, Count: len(hits)}, nil
}
