package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/domain/urlguard"
)

const cacheTTL = 300 * time.Second

type discoveryDocument struct {
	JWKSURI string `json:"jwks_uri"`
}

// Cache maps issuers to their published key sets, backed by redis with a
// 300 second TTL. A lookup that cannot resolve the expected kid within the
// cached set refetches, so freshly rotated keys are picked up before the
// cached entry expires.
type Cache struct {
	rdb     *redis.Client
	fetcher urlguard.Fetcher
	guard   func(string) error
}

func NewCache(rdb *redis.Client, fetcher urlguard.Fetcher) *Cache {
	return &Cache{rdb: rdb, fetcher: fetcher, guard: urlguard.Validate}
}

func cacheKey(issuer string) string {
	return "jwks:" + issuer
}

// Lookup returns the issuer's key set. When expectedKid is non-empty and the
// cached set does not contain it, the set is refetched from the issuer. When
// expectedKid is empty a cached set is returned as-is.
func (c *Cache) Lookup(ctx context.Context, issuer, expectedKid string) (*Set, error) {
	if cached, err := c.rdb.Get(ctx, cacheKey(issuer)).Bytes(); err == nil {
		if set, perr := ParseSet(cached); perr == nil {
			if expectedKid == "" {
				return set, nil
			}
			if _, ok := set.Lookup(expectedKid); ok {
				return set, nil
			}
			// Rotation miss: a new kid showed up before the cached set
			// expired.
		}
	} else if err != redis.Nil {
		logx.WithContext(ctx).Errorf("JWKS cache read failed for %s: %v", issuer, err)
	}

	set, raw, err := c.fetch(ctx, issuer)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, cacheKey(issuer), raw, cacheTTL).Err(); err != nil {
		// Cache writes are best-effort; the fetched set is still served.
		logx.WithContext(ctx).Errorf("JWKS cache write failed for %s: %v", issuer, err)
	}

	return set, nil
}

func (c *Cache) fetch(ctx context.Context, issuer string) (*Set, []byte, error) {
	discoveryURL := strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"
	if err := c.guard(discoveryURL); err != nil {
		return nil, nil, err
	}

	status, body, err := c.fetcher.Get(ctx, discoveryURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil, fmt.Errorf("OIDC discovery returned status %d", status)
	}

	var doc discoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return nil, nil, fmt.Errorf("discovery document missing jwks_uri")
	}

	if err := c.guard(doc.JWKSURI); err != nil {
		return nil, nil, err
	}

	status, body, err = c.fetcher.Get(ctx, doc.JWKSURI)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching JWKS: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil, fmt.Errorf("JWKS endpoint returned status %d", status)
	}

	set, err := ParseSet(body)
	if err != nil {
		return nil, nil, err
	}

	return set, body, nil
}
