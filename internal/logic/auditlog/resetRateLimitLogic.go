package auditlog

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/reqctx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

type ResetRateLimitLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewResetRateLimitLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ResetRateLimitLogic {
	return &ResetRateLimitLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ResetRateLimit removes an identity's bucket; the next request starts from
// a full bucket.
func (l *ResetRateLimitLogic) ResetRateLimit(req *types.ResetRateLimitRequest) (*types.ResetRateLimitResponse, error) {
	if req.Identity == "" {
		return nil, errorx.InvalidRequest("identity is required")
	}

	if err := l.svcCtx.Limiter.Reset(l.ctx, req.Identity); err != nil {
		return nil, errorx.RateLimitUnavailable().WithCause(err)
	}

	metadata, _ := json.Marshal(map[string]string{"identity": req.Identity})
	requestID := reqctx.RequestID(l.ctx)
	entry := audit.Entry{
		RequestID: requestID,
		Action:    audit.ActionRateLimitReset,
		Issuer:    "admin",
		Subject:   "admin",
		Success:   true,
		Metadata:  string(metadata),
	}
	bg := context.WithoutCancel(l.ctx)
	l.svcCtx.Background(requestID, func() {
		l.svcCtx.AuditWriter.Write(bg, entry)
	})

	return &types.ResetRateLimitResponse{Success: true, Reset: true}, nil
}
