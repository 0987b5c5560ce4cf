package keys

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
	"github.com/kjanat/gpg-signing-service/domain/pgp"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/reqctx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

type UploadKeyLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUploadKeyLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UploadKeyLogic {
	return &UploadKeyLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UploadKey validates the armored block against the claimed key id, stores
// it, and invalidates any cached decrypted material so a rotation takes
// effect immediately.
func (l *UploadKeyLogic) UploadKey(req *types.UploadKeyRequest) (*types.UploadKeyResponse, error) {
	if req.ArmoredPrivateKey == "" || req.KeyID == "" {
		return nil, errorx.InvalidRequest("armoredPrivateKey and keyId are required")
	}

	keyID, err := keystore.NormalizeKeyID(req.KeyID)
	if err != nil {
		return nil, errorx.InvalidRequest(err.Error())
	}
	if err := keystore.ValidateArmor(req.ArmoredPrivateKey); err != nil {
		return nil, errorx.InvalidRequest(err.Error())
	}

	info, err := pgp.ParseAndValidate(req.ArmoredPrivateKey, l.svcCtx.Config.Keys.Passphrase)
	if err != nil {
		return nil, errorx.InvalidRequest("armored key could not be parsed").WithCause(err)
	}
	if info.KeyID != keyID {
		return nil, errorx.InvalidRequest("keyId does not match the uploaded key")
	}

	// Same keyId already present means this upload is a rotation.
	action := audit.ActionKeyUpload
	if _, err := l.svcCtx.KeyStore.Get(l.ctx, keyID); err == nil {
		action = audit.ActionKeyRotate
	} else if !errors.Is(err, keystore.ErrNotFound) {
		return nil, errorx.Internal(errorx.CodeKeyUploadError, "Key upload failed").WithCause(err)
	}

	stored := &keystore.StoredKey{
		KeyID:             keyID,
		Fingerprint:       info.Fingerprint,
		Algorithm:         info.Algorithm,
		ArmoredPrivateKey: req.ArmoredPrivateKey,
	}
	if err := l.svcCtx.KeyStore.Put(l.ctx, stored); err != nil {
		return nil, errorx.Internal(errorx.CodeKeyUploadError, "Key upload failed").WithCause(err)
	}

	l.svcCtx.KeyCache.Invalidate(keyID)
	auditAdminAction(l.ctx, l.svcCtx, action, keyID, true, "")

	return &types.UploadKeyResponse{
		Success:     true,
		KeyID:       keyID,
		Fingerprint: info.Fingerprint,
		Algorithm:   info.Algorithm,
		UserID:      info.UserID,
	}, nil
}

// auditAdminAction records an admin operation; admin requests carry no OIDC
// identity, so issuer and subject are fixed.
func auditAdminAction(ctx context.Context, svcCtx *svc.ServiceContext, action, keyID string, success bool, errorCode string) {
	requestID := reqctx.RequestID(ctx)
	entry := audit.Entry{
		RequestID: requestID,
		Action:    action,
		Issuer:    "admin",
		Subject:   "admin",
		KeyID:     keyID,
		Success:   success,
		ErrorCode: errorCode,
	}

	bg := context.WithoutCancel(ctx)
	svcCtx.Background(requestID, func() {
		svcCtx.AuditWriter.Write(bg, entry)
	})
}
