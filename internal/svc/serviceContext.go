package svc

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
	"github.com/zeromicro/go-zero/rest"

	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/domain/jwks"
	"github.com/kjanat/gpg-signing-service/domain/keycache"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
	"github.com/kjanat/gpg-signing-service/domain/oidc"
	"github.com/kjanat/gpg-signing-service/domain/pgp"
	"github.com/kjanat/gpg-signing-service/domain/ratelimit"
	"github.com/kjanat/gpg-signing-service/domain/urlguard"
	"github.com/kjanat/gpg-signing-service/internal/config"
	"github.com/kjanat/gpg-signing-service/internal/middleware"
	"github.com/kjanat/gpg-signing-service/third_party/cache"
	"github.com/kjanat/gpg-signing-service/third_party/database"
	"github.com/kjanat/gpg-signing-service/third_party/search"
)

type ServiceContext struct {
	Config config.Config

	DB    *sqlx.DB
	Redis *redis.Client

	KeyStore      *keystore.Store
	KeyCache      *keycache.Cache
	Signer        *pgp.Signer
	Limiter       *ratelimit.Limiter
	AdminLimiter  *ratelimit.Limiter
	Verifier      *oidc.Verifier
	AuditWriter   *audit.Writer
	AuditReader   *audit.Reader
	AuditSearcher *audit.Searcher

	OIDCAuth  rest.Middleware
	AdminAuth rest.Middleware

	// Background hands a task off for fire-and-forget execution. Failures
	// are logged under the request id; tests swap in an inline runner.
	Background func(requestID string, task func())
}

func NewServiceContext(c config.Config) *ServiceContext {
	db, err := database.NewPostgresConnection(c.Database)
	if err != nil {
		logx.Must(err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		logx.Must(err)
	}

	rdb, err := cache.NewRedisConnection(c.Redis)
	if err != nil {
		logx.Must(err)
	}

	var index *search.MeiliSearchClient
	if c.MeiliSearch.Host != "" {
		index, err = search.NewMeiliSearchConnection(c.MeiliSearch)
		if err != nil {
			logx.Must(err)
		}
		if err := index.CreateIndex(search.AuditIndex, "id"); err != nil {
			// The index may already exist; search stays best-effort.
			logx.Errorf("audit search index setup: %v", err)
		}
	}

	keyCache := keycache.New(keycache.DefaultTTL)
	keyStore := keystore.NewStore(db)
	limiter := ratelimit.NewLimiter(rdb.GetClient())
	adminLimiter := ratelimit.NewLimiter(rdb.GetClient())

	jwksCache := jwks.NewCache(rdb.GetClient(), urlguard.NewHTTPFetcher())
	verifier := oidc.NewVerifier(jwksCache, c.Auth.Issuers(), c.Auth.ExpectedAudience)

	var searcher *audit.Searcher
	if index != nil {
		searcher = audit.NewSearcher(index)
	}

	return &ServiceContext{
		Config:        c,
		DB:            db,
		Redis:         rdb.GetClient(),
		KeyStore:      keyStore,
		KeyCache:      keyCache,
		Signer:        pgp.NewSigner(keyCache),
		Limiter:       limiter,
		AdminLimiter:  adminLimiter,
		Verifier:      verifier,
		AuditWriter:   audit.NewWriter(db, index),
		AuditReader:   audit.NewReader(db),
		AuditSearcher: searcher,
		OIDCAuth:      middleware.NewOIDCAuthMiddleware(verifier).Handle,
		AdminAuth:     middleware.NewAdminAuthMiddleware(c.Admin.Token, adminLimiter).Handle,
		Background: func(requestID string, task func()) {
			threading.GoSafe(func() {
				defer func() {
					if p := recover(); p != nil {
						logx.Errorf("background task for request %s failed: %v", requestID, p)
					}
				}()
				task()
			})
		},
	}
}

// Close releases external connections and purges decrypted key material.
func (s *ServiceContext) Close() {
	s.KeyCache.Clear()
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}
