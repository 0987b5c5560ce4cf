package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://issuer.example.com"

// stubFetcher serves canned responses per URL and counts calls.
type stubFetcher struct {
	responses map[string][]byte
	calls     map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{responses: map[string][]byte{}, calls: map[string]int{}}
}

func (f *stubFetcher) Get(_ context.Context, rawURL string) (int, []byte, error) {
	f.calls[rawURL]++
	body, ok := f.responses[rawURL]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	return http.StatusOK, body, nil
}

func (f *stubFetcher) serveIssuer(t *testing.T, issuer string, kids ...string) {
	t.Helper()

	jwksURL := issuer + "/jwks"
	discovery, err := json.Marshal(map[string]string{"jwks_uri": jwksURL})
	require.NoError(t, err)
	f.responses[issuer+"/.well-known/openid-configuration"] = discovery

	set := Set{}
	for _, kid := range kids {
		set.Keys = append(set.Keys, JWK{Kty: "RSA", Use: "sig", Kid: kid, N: "AQAB", E: "AQAB"})
	}
	doc, err := json.Marshal(set)
	require.NoError(t, err)
	f.responses[jwksURL] = doc
}

func setupCache(t *testing.T) (*Cache, *stubFetcher, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	fetcher := newStubFetcher()
	return NewCache(rdb, fetcher), fetcher, mr
}

func TestCacheLookup_FetchesAndCaches(t *testing.T) {
	cache, fetcher, mr := setupCache(t)
	fetcher.serveIssuer(t, testIssuer, "K1")

	set, err := cache.Lookup(context.Background(), testIssuer, "K1")
	require.NoError(t, err)
	_, ok := set.Lookup("K1")
	assert.True(t, ok)

	assert.True(t, mr.Exists("jwks:"+testIssuer))

	// Second lookup is served from the cache.
	_, err = cache.Lookup(context.Background(), testIssuer, "K1")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls[testIssuer+"/.well-known/openid-configuration"])
}

func TestCacheLookup_RotationMissRefetches(t *testing.T) {
	cache, fetcher, _ := setupCache(t)
	fetcher.serveIssuer(t, testIssuer, "K1")

	_, err := cache.Lookup(context.Background(), testIssuer, "K1")
	require.NoError(t, err)

	// The issuer rotates in K2 while the K1-only set is still cached.
	fetcher.serveIssuer(t, testIssuer, "K1", "K2")

	set, err := cache.Lookup(context.Background(), testIssuer, "K2")
	require.NoError(t, err)
	_, ok := set.Lookup("K2")
	assert.True(t, ok)
	assert.Equal(t, 2, fetcher.calls[testIssuer+"/.well-known/openid-configuration"])
}

func TestCacheLookup_NoKidServesCachedSet(t *testing.T) {
	cache, fetcher, _ := setupCache(t)
	fetcher.serveIssuer(t, testIssuer, "K1")

	_, err := cache.Lookup(context.Background(), testIssuer, "K1")
	require.NoError(t, err)

	_, err = cache.Lookup(context.Background(), testIssuer, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls[testIssuer+"/.well-known/openid-configuration"])
}

func TestCacheLookup_GuardsIssuerURL(t *testing.T) {
	cache, _, _ := setupCache(t)

	_, err := cache.Lookup(context.Background(), "https://169.254.169.254", "K1")
	assert.Error(t, err)
}

func TestCacheLookup_DiscoveryErrors(t *testing.T) {
	cache, fetcher, _ := setupCache(t)

	t.Run("missing discovery document", func(t *testing.T) {
		_, err := cache.Lookup(context.Background(), testIssuer, "K1")
		assert.Error(t, err)
	})

	t.Run("missing jwks_uri", func(t *testing.T) {
		fetcher.responses[testIssuer+"/.well-known/openid-configuration"] = []byte(`{}`)
		_, err := cache.Lookup(context.Background(), testIssuer, "K1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwks_uri")
	})
}

func TestCacheLookup_SurvivesCacheWriteFailure(t *testing.T) {
	cache, fetcher, mr := setupCache(t)
	fetcher.serveIssuer(t, testIssuer, "K1")

	// A dead cache backend must not break the lookup itself; reads and
	// writes both fail but the fetched set is still returned.
	mr.SetError("cache down")

	set, err := cache.Lookup(context.Background(), testIssuer, "K1")
	require.NoError(t, err)
	_, ok := set.Lookup("K1")
	assert.True(t, ok)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("jwks:%s", testIssuer), cacheKey(testIssuer))
}
