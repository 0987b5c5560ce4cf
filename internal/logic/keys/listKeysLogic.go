package keys

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

type ListKeysLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListKeysLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListKeysLogic {
	return &ListKeysLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListKeysLogic) ListKeys() (*types.ListKeysResponse, error) {
	keys, err := l.svcCtx.KeyStore.List(l.ctx)
	if err != nil {
		return nil, errorx.Internal(errorx.CodeKeyListError, "Failed to list keys").WithCause(err)
	}
	return &types.ListKeysResponse{Keys: keys}, nil
}
