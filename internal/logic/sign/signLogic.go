package sign

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
	"github.com/kjanat/gpg-signing-service/domain/oidc"
	"github.com/kjanat/gpg-signing-service/domain/ratelimit"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/reqctx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
	"github.com/kjanat/gpg-signing-service/internal/types"
)

var timeNow = time.Now

type SignLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSignLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SignLogic {
	return &SignLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Sign is the hot path: rate-limit consume and key fetch run concurrently,
// then the signer produces a detached signature. The audit write is handed
// off as a background task and survives request cancellation; a token
// consumed before a late denial is not refunded.
func (l *SignLogic) Sign(commitData []byte, requestedKeyID string) (*types.SignResponse, error) {
	if len(commitData) == 0 {
		return nil, errorx.InvalidRequest("Request body is empty")
	}

	claims, ok := reqctx.Claims(l.ctx)
	if !ok {
		return nil, errorx.AuthMissing("No validated identity on request")
	}
	identity := claims.Identity()

	keyID := requestedKeyID
	if keyID == "" {
		keyID = l.svcCtx.Config.Keys.DefaultKeyID
	}
	normalized, err := keystore.NormalizeKeyID(keyID)
	if err != nil {
		return nil, errorx.InvalidRequest(err.Error())
	}

	var (
		limRes ratelimit.Result
		limErr error
		stored *keystore.StoredKey
		keyErr error
	)
	_ = mr.Finish(
		func() error {
			limRes, limErr = l.svcCtx.Limiter.Consume(l.ctx, identity)
			return nil
		},
		func() error {
			stored, keyErr = l.svcCtx.KeyStore.Get(l.ctx, normalized)
			return nil
		},
	)

	// Fail closed: an unreachable limiter denies the request outright.
	if limErr != nil {
		return nil, errorx.RateLimitUnavailable().WithCause(limErr)
	}
	if !limRes.Allowed {
		return nil, errorx.RateLimited(limRes.RetryAfter(timeNow()), limRes.ResetAt)
	}

	if keyErr != nil {
		if errors.Is(keyErr, keystore.ErrNotFound) {
			l.audit(claims, normalized, false, errorx.CodeKeyNotFound)
			return nil, errorx.KeyNotFound("Key not found")
		}
		l.audit(claims, normalized, false, errorx.CodeSignError)
		return nil, errorx.Internal(errorx.CodeSignError, "Signing failed").WithCause(keyErr)
	}

	result, err := l.svcCtx.Signer.Sign(commitData, stored, l.svcCtx.Config.Keys.Passphrase)
	if err != nil {
		l.audit(claims, normalized, false, errorx.CodeSignError)
		return nil, errorx.Internal(errorx.CodeSignError, "Signing failed").WithCause(err)
	}

	l.audit(claims, normalized, true, "")

	return &types.SignResponse{
		Signature: result.Signature,
		KeyID:     result.KeyID,
		Remaining: limRes.Remaining,
		ResetAt:   limRes.ResetAt,
	}, nil
}

func (l *SignLogic) audit(claims *oidc.ValidatedClaims, keyID string, success bool, errorCode string) {
	requestID := reqctx.RequestID(l.ctx)
	entry := audit.Entry{
		RequestID: requestID,
		Action:    audit.ActionSign,
		Issuer:    claims.Issuer,
		Subject:   claims.Subject,
		KeyID:     keyID,
		Success:   success,
		ErrorCode: errorCode,
	}

	// The audit write must complete even when the client disconnects.
	ctx := context.WithoutCancel(l.ctx)
	l.svcCtx.Background(requestID, func() {
		l.svcCtx.AuditWriter.Write(ctx, entry)
	})
}
