package keys

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

type DeleteKeyLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewDeleteKeyLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DeleteKeyLogic {
	return &DeleteKeyLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// DeleteKey removes a stored key and drops any cached decrypted material for
// it, so a deleted key can no longer sign.
func (l *DeleteKeyLogic) DeleteKey(req *types.KeyPathRequest) (*types.DeleteKeyResponse, error) {
	keyID, err := keystore.NormalizeKeyID(req.KeyID)
	if err != nil {
		return nil, errorx.InvalidRequest(err.Error())
	}

	deleted, err := l.svcCtx.KeyStore.Delete(l.ctx, keyID)
	if err != nil {
		return nil, errorx.Internal(errorx.CodeKeyDeleteError, "Failed to delete key").WithCause(err)
	}

	if deleted {
		l.svcCtx.KeyCache.Invalidate(keyID)
		auditAdminAction(l.ctx, l.svcCtx, audit.ActionKeyDelete, keyID, true, "")
	}

	return &types.DeleteKeyResponse{Success: true, Deleted: deleted}, nil
}
