package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

type QueryAuditLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewQueryAuditLogic(ctx context.Context, svcCtx *svc.ServiceContext) *QueryAuditLogic {
	return &QueryAuditLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *QueryAuditLogic) QueryAudit(req *types.AuditQueryRequest) (*types.AuditQueryResponse, error) {
	query := audit.Query{
		Limit:   req.Limit,
		Offset:  req.Offset,
		Action:  req.Action,
		Subject: req.Subject,
	}

	var err error
	if query.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, errorx.InvalidRequest(fmt.Sprintf("invalid startDate: %v", err))
	}
	if query.EndDate, err = parseDate(req.EndDate); err != nil {
		return nil, errorx.InvalidRequest(fmt.Sprintf("invalid endDate: %v", err))
	}
	if err := query.Normalize(); err != nil {
		return nil, errorx.InvalidRequest(err.Error())
	}

	logs, err := l.svcCtx.AuditReader.Read(l.ctx, query)
	if err != nil {
		return nil, errorx.Internal(errorx.CodeAuditError, "Failed to read audit log").WithCause(err)
	}

	return &types.AuditQueryResponse{Logs: logs, Count: len(logs)}, nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", value)
}
