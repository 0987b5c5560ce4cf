package sign

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/domain/keycache"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
	"github.com/kjanat/gpg-signing-service/domain/oidc"
	"github.com/kjanat/gpg-signing-service/domain/pgp"
	"github.com/kjanat/gpg-signing-service/domain/ratelimit"
	"github.com/kjanat/gpg-signing-service/internal/config"
	"github.com/kjanat/gpg-signing-service/internal/errorx"
	"github.com/kjanat/gpg-signing-service/internal/reqctx"
	"github.com/kjanat/gpg-signing-service/internal/svc"
)

const (
	testIssuer  = "https://token.actions.githubusercontent.com"
	testSubject = "repo:octo/repo"
)

type signEnv struct {
	svcCtx *svc.ServiceContext
	mock   sqlmock.Sqlmock
	mr     *miniredis.Miniredis
	keyID  string
	armor  string
}

func newTestArmoredKey(t *testing.T) (string, string) {
	t.Helper()

	entity, err := openpgp.NewEntity("Test Signer", "", "signer@example.com", &packet.Config{RSABits: 1024})
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())

	return buf.String(), entity.PrimaryKey.KeyIdString()
}

func setupSignEnv(t *testing.T) *signEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	armored, keyID := newTestArmoredKey(t)

	sqlxDB := sqlx.NewDb(db, "postgres")
	keyCache := keycache.New(keycache.DefaultTTL)

	svcCtx := &svc.ServiceContext{
		Config: config.Config{
			Keys: config.KeyConfig{DefaultKeyID: keyID},
		},
		DB:          sqlxDB,
		Redis:       rdb,
		KeyStore:    keystore.NewStore(sqlxDB),
		KeyCache:    keyCache,
		Signer:      pgp.NewSigner(keyCache),
		Limiter:     ratelimit.NewLimiter(rdb),
		AuditWriter: audit.NewWriter(sqlxDB, nil),
		// Tests run background work inline so assertions see it.
		Background: func(_ string, task func()) { task() },
	}

	return &signEnv{svcCtx: svcCtx, mock: mock, mr: mr, keyID: keyID, armor: armored}
}

func (e *signEnv) ctx() context.Context {
	ctx := reqctx.WithRequestID(context.Background(), "req-test-1")
	return reqctx.WithClaims(ctx, &oidc.ValidatedClaims{
		Issuer:  testIssuer,
		Subject: testSubject,
	})
}

func (e *signEnv) expectKeyFetch() {
	rows := sqlmock.NewRows([]string{"key_id", "fingerprint", "algorithm", "armored_private_key", "created_at"}).
		AddRow(e.keyID, strings.Repeat("AB", 20), "RSA", e.armor, time.Now())
	e.mock.ExpectQuery("SELECT key_id, fingerprint, algorithm, armored_private_key, created_at").
		WithArgs(e.keyID).
		WillReturnRows(rows)
}

func (e *signEnv) expectAudit(success int, errorCode interface{}) {
	e.mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "req-test-1", "sign",
			testIssuer, testSubject, e.keyID, success, errorCode, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func codeOf(t *testing.T, err error) *errorx.Error {
	t.Helper()
	coded := errorx.From(err)
	require.NotNil(t, coded)
	return coded
}

func TestSign_HappyPath(t *testing.T) {
	env := setupSignEnv(t)
	env.expectKeyFetch()
	env.expectAudit(1, nil)

	commit := []byte("tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\nparent none\n")

	l := NewSignLogic(env.ctx(), env.svcCtx)
	resp, err := l.Sign(commit, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Signature, "-----BEGIN PGP SIGNATURE-----"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(resp.Signature), "-----END PGP SIGNATURE-----"))
	assert.Equal(t, env.keyID, resp.KeyID)
	assert.Equal(t, 99, resp.Remaining)
	assert.Positive(t, resp.ResetAt)

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSign_EmptyBody(t *testing.T) {
	env := setupSignEnv(t)

	l := NewSignLogic(env.ctx(), env.svcCtx)
	_, err := l.Sign(nil, "")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidRequest, codeOf(t, err).Code)
}

func TestSign_NoIdentity(t *testing.T) {
	env := setupSignEnv(t)

	l := NewSignLogic(reqctx.WithRequestID(context.Background(), "req-x"), env.svcCtx)
	_, err := l.Sign([]byte("data"), "")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeAuthMissing, codeOf(t, err).Code)
}

func TestSign_InvalidKeyID(t *testing.T) {
	env := setupSignEnv(t)

	l := NewSignLogic(env.ctx(), env.svcCtx)
	_, err := l.Sign([]byte("data"), "not-a-key-id")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidRequest, codeOf(t, err).Code)
}

func TestSign_KeyNotFound(t *testing.T) {
	env := setupSignEnv(t)

	env.mock.ExpectQuery("SELECT key_id, fingerprint, algorithm, armored_private_key, created_at").
		WithArgs(env.keyID).
		WillReturnRows(sqlmock.NewRows([]string{"key_id"}))
	env.expectAudit(0, "KEY_NOT_FOUND")

	l := NewSignLogic(env.ctx(), env.svcCtx)
	_, err := l.Sign([]byte("data"), "")
	require.Error(t, err)

	coded := codeOf(t, err)
	assert.Equal(t, errorx.CodeKeyNotFound, coded.Code)
	assert.Equal(t, 404, coded.Status)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSign_RateLimited(t *testing.T) {
	env := setupSignEnv(t)

	// Exhaust the identity's bucket up front.
	identity := testIssuer + ":" + testSubject
	for i := 0; i < 100; i++ {
		_, err := env.svcCtx.Limiter.Consume(context.Background(), identity)
		require.NoError(t, err)
	}

	// The key fetch still runs; it races the limiter by design.
	env.expectKeyFetch()

	l := NewSignLogic(env.ctx(), env.svcCtx)
	_, err := l.Sign([]byte("data"), "")
	require.Error(t, err)

	coded := codeOf(t, err)
	assert.Equal(t, errorx.CodeRateLimited, coded.Code)
	assert.Equal(t, 429, coded.Status)
	assert.GreaterOrEqual(t, coded.RetryAfter, 1)
}

func TestSign_FailsClosedWhenLimiterDown(t *testing.T) {
	env := setupSignEnv(t)
	env.expectKeyFetch()

	env.mr.Close()

	l := NewSignLogic(env.ctx(), env.svcCtx)
	_, err := l.Sign([]byte("data"), "")
	require.Error(t, err)

	coded := codeOf(t, err)
	assert.Equal(t, errorx.CodeRateLimitError, coded.Code)
	assert.Equal(t, 503, coded.Status)
}

func TestSign_SignerFailureIsAudited(t *testing.T) {
	env := setupSignEnv(t)

	rows := sqlmock.NewRows([]string{"key_id", "fingerprint", "algorithm", "armored_private_key", "created_at"}).
		AddRow(env.keyID, strings.Repeat("AB", 20), "RSA", "garbage, not a key", time.Now())
	env.mock.ExpectQuery("SELECT key_id, fingerprint, algorithm, armored_private_key, created_at").
		WithArgs(env.keyID).
		WillReturnRows(rows)
	env.expectAudit(0, "SIGN_ERROR")

	l := NewSignLogic(env.ctx(), env.svcCtx)
	_, err := l.Sign([]byte("data"), "")
	require.Error(t, err)

	coded := codeOf(t, err)
	assert.Equal(t, errorx.CodeSignError, coded.Code)
	assert.Equal(t, 500, coded.Status)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}
