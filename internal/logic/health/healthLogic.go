package health

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

const serviceVersion = "1.0.0"

type HealthLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHealthLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HealthLogic {
	return &HealthLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Health reports per-dependency status; degraded responses keep the same
// schema and are served with 503.
func (l *HealthLogic) Health() (*types.HealthResponse, bool) {
	checks := types.HealthChecks{KeyStorage: "ok", Database: "ok"}
	healthy := true

	if err := l.svcCtx.DB.PingContext(l.ctx); err != nil {
		l.Errorf("health: database ping failed: %v", err)
		checks.Database = "error"
		healthy = false
	}

	if _, err := l.svcCtx.KeyStore.Count(l.ctx); err != nil {
		l.Errorf("health: key storage check failed: %v", err)
		checks.KeyStorage = "error"
		healthy = false
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}

	return &types.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   serviceVersion,
		Checks:    checks,
	}, healthy
}
