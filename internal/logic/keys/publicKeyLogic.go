package keys

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/domain/keystore"
	"github.com/kjanat/gpg-signing-service/domain/pgp"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
)

type PublicKeyLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPublicKeyLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PublicKeyLogic {
	return &PublicKeyLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// PublicKey loads a stored key and emits its armored public block. Serves
// both the unauthenticated /public-key endpoint and the admin variant.
func (l *PublicKeyLogic) PublicKey(requestedKeyID string) (string, error) {
	keyID := requestedKeyID
	if keyID == "" {
		keyID = l.svcCtx.Config.Keys.DefaultKeyID
	}
	normalized, err := keystore.NormalizeKeyID(keyID)
	if err != nil {
		return "", errorx.InvalidRequest(err.Error())
	}

	stored, err := l.svcCtx.KeyStore.Get(l.ctx, normalized)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return "", errorx.KeyNotFound("Key not found")
		}
		return "", errorx.Internal(errorx.CodeKeyProcessingError, "Failed to process key").WithCause(err)
	}

	armored, err := pgp.ExtractPublic(stored.ArmoredPrivateKey)
	if err != nil {
		return "", errorx.Internal(errorx.CodeKeyProcessingError, "Failed to process key").WithCause(err)
	}
	return armored, nil
}
